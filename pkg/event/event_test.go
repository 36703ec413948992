package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectPutEvent(t *testing.T) {
	evt, err := NewObjectPutEvent("object1", map[string]string{"owner": "abc"}, "zenkobucket-bucket1")
	require.NoError(t, err)
	assert.Equal(t, Put, evt.Type)
	assert.Equal(t, "zenkobucket-bucket1", evt.Bucket)
	assert.Equal(t, "object1", evt.Key)
	assert.JSONEq(t, `{"owner":"abc"}`, evt.Value)
}

func TestNewBucketListingPutEvent(t *testing.T) {
	evt := NewBucketListingPutEvent("owner-1", "2024-01-01T00:00:00Z", "zenkobucket-bucket1")
	assert.Equal(t, Put, evt.Type)
	assert.Equal(t, UsersBucket, evt.Bucket)
	assert.Equal(t, "owner-1..|..zenkobucket-bucket1", evt.Key)
	assert.Equal(t, "2024-01-01T00:00:00Z", evt.Value)
}

func TestNewBucketMetadataPutEvent(t *testing.T) {
	evt, err := NewBucketMetadataPutEvent(map[string]bool{"versioning": true}, "zenkobucket-bucket1")
	require.NoError(t, err)
	assert.Equal(t, "zenkobucket-bucket1", evt.Bucket)
	assert.Equal(t, "zenkobucket-bucket1", evt.Key)
	assert.JSONEq(t, `{"versioning":true}`, evt.Value)
}

func TestNewDeleteEvent(t *testing.T) {
	evt := NewDeleteEvent("object1"+VIDSep+"v1", "zenkobucket-bucket1")
	assert.Equal(t, Del, evt.Type)
	assert.Empty(t, evt.Value)
	assert.Contains(t, evt.Key, VIDSep)
}

func TestTargetBucket(t *testing.T) {
	assert.Equal(t, "zenkobucket-bucket1", TargetBucket("", "bucket1"))
	assert.Equal(t, "custom-bucket1", TargetBucket("custom", "bucket1"))
}
