package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeMkdirPAndGet(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	require.NoError(t, f.MkdirP(ctx, "/ingestion/bucket1/logState"))

	_, _, err := f.Get(ctx, "/ingestion/bucket1/logState")
	require.NoError(t, err)

	children, err := f.Children(ctx, "/ingestion/bucket1")
	require.NoError(t, err)
	assert.Equal(t, []string{"logState"}, children)
}

func TestFakeCAS(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Create(ctx, "/offset", []byte("0")))

	_, version, err := f.Get(ctx, "/offset")
	require.NoError(t, err)

	require.NoError(t, f.CAS(ctx, "/offset", []byte("10"), version))

	err = f.CAS(ctx, "/offset", []byte("20"), version)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	data, _, err := f.Get(ctx, "/offset")
	require.NoError(t, err)
	assert.Equal(t, "10", string(data))
}

func TestFakeGetMissing(t *testing.T) {
	f := NewFake()
	_, _, err := f.Get(context.Background(), "/missing")
	assert.ErrorIs(t, err, ErrNoNode)
}
