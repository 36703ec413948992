package event

import (
	"encoding/json"
	"fmt"
)

// NewObjectPutEvent builds a put event for a single object, as produced by
// the snapshot producer for every object it lists, or by the tail producer
// for a live object write. metadata is marshaled to JSON and carried as
// the event's opaque value.
func NewObjectPutEvent(objectKey string, metadata any, targetBucket string) (Canonical, error) {
	value, err := json.Marshal(metadata)
	if err != nil {
		return Canonical{}, fmt.Errorf("marshal object metadata for key %q: %w", objectKey, err)
	}
	return Canonical{
		Type:   Put,
		Bucket: targetBucket,
		Key:    objectKey,
		Value:  string(value),
	}, nil
}

// NewBucketListingPutEvent builds a put event recording that ownerID owns
// targetBucket, published to the well-known users-bucket so downstream
// materializers can reconstruct owner → bucket listings.
func NewBucketListingPutEvent(ownerID, creationDate, targetBucket string) Canonical {
	return Canonical{
		Type:   Put,
		Bucket: UsersBucket,
		Key:    ownerID + "..|.." + targetBucket,
		Value:  creationDate,
	}
}

// NewBucketMetadataPutEvent builds a put event carrying a bucket's own
// metadata (ACLs, versioning state, etc.), keyed by its own target bucket
// name so the metastore materializer can look it up directly.
func NewBucketMetadataPutEvent(metadata any, targetBucket string) (Canonical, error) {
	value, err := json.Marshal(metadata)
	if err != nil {
		return Canonical{}, fmt.Errorf("marshal bucket metadata for %q: %w", targetBucket, err)
	}
	return Canonical{
		Type:   Put,
		Bucket: targetBucket,
		Key:    targetBucket,
		Value:  string(value),
	}, nil
}

// NewDeleteEvent builds a delete event for an object key. value is always
// empty for deletes.
func NewDeleteEvent(objectKey, targetBucket string) Canonical {
	return Canonical{
		Type:   Del,
		Bucket: targetBucket,
		Key:    objectKey,
	}
}
