package logstream

import (
	"strings"

	"github.com/objectstream/ingestd/pkg/event"
)

// Well-known source containers whose records describe bucket lifecycle
// rather than object content.
const (
	UsersBucketDB = "users..bucket"
	MetastoreDB   = "metastore"
)

// Entry is one mutation inside a log record batch.
type Entry struct {
	Type  string `json:"type,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// EffectiveType returns the entry's type, defaulting to "put" when unset.
func (e Entry) EffectiveType() string {
	if e.Type == "" {
		return "put"
	}
	return e.Type
}

// Record is one batch parsed from the tail log: {db?, entries[]}.
// db's absence marks a legacy put-style record.
type Record struct {
	DB      string  `json:"db,omitempty"`
	Entries []Entry `json:"entries"`
}

// Matches reports whether this record's db should produce events for
// sourceBucket: either it names the source bucket directly, or it is one
// of the two special containers.
func (r Record) Matches(sourceBucket string) bool {
	switch r.DB {
	case UsersBucketDB, MetastoreDB:
		return true
	default:
		return r.DB == sourceBucket
	}
}

// RewriteKey applies the db-based key rewrite rules. Rewrite always
// happens before any extension filter sees the key.
func (r Record) RewriteKey(key, targetBucket string) string {
	switch r.DB {
	case UsersBucketDB:
		if idx := strings.Index(key, "..|.."); idx >= 0 {
			return key[:idx] + "..|.." + targetBucket
		}
		return key
	case MetastoreDB:
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			return key[:idx+1] + targetBucket
		}
		return targetBucket
	default:
		return key
	}
}

// EventBucket returns the canonical event's bucket field for a record:
// the well-known users-bucket/metastore constant for the two special
// containers, or the target bucket for everything else.
func (r Record) EventBucket(targetBucket string) string {
	switch r.DB {
	case UsersBucketDB:
		return event.UsersBucket
	case MetastoreDB:
		return event.Metastore
	default:
		return targetBucket
	}
}
