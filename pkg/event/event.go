// Package event defines the canonical event record published to the message
// bus by the ingestion reader, and the constructors that build one from the
// source cluster's object/bucket metadata.
package event

// Type is the canonical event's mutation kind.
type Type string

// Event types. Type defaults to Put if unspecified upstream.
const (
	Put Type = "put"
	Del Type = "del"
)

// VIDSep separates an object key from its version id in a composite key
// (<key><VIDSep><versionId>). A single NUL byte so it can never collide with
// a user-chosen key character.
const VIDSep = "\x00"

// UsersBucket is the well-known target bucket for bucket-lifecycle listing
// events (owner → bucket membership).
const UsersBucket = "users-bucket"

// Metastore is the well-known target bucket for bucket-metadata events.
const Metastore = "metastore"

// DefaultTargetBucketPrefix is prepended to a source bucket's display name to
// form the target bucket, preventing collisions when many source tenants
// share one target catalog.
const DefaultTargetBucketPrefix = "zenkobucket"

// Canonical is the event shape published to the bus. Value is opaque (JSON
// of object metadata) and is omitted for deletes.
type Canonical struct {
	Type   Type   `json:"type"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
}

// TargetBucket returns "<prefix>-<bucket>", the convention used to namespace
// a source bucket into the target catalog.
func TargetBucket(prefix, bucket string) string {
	if prefix == "" {
		prefix = DefaultTargetBucketPrefix
	}
	return prefix + "-" + bucket
}
