// Package extension implements the reader's plug-in filter mechanism:
// each extension may produce zero or more canonical events staged for
// publish in the current batch via a provided batch handle.
package extension

import (
	"sync"

	"github.com/objectstream/ingestd/pkg/event"
)

// Entry is the minimal shape an extension filters on: a rewritten record
// entry plus the bucket/db context it arrived with.
type Entry struct {
	Type   string
	Bucket string
	Key    string
	Value  string
}

// Filter is implemented by one plug-in extension. The reader calls
// SetEntryBatch with the current batch's handle before iterating records
// and UnsetEntryBatch after; between those calls, Filter may stage zero
// or more canonical events into the handle under targetBucket.
type Filter interface {
	Name() string
	SetEntryBatch(handle *BatchHandle)
	UnsetEntryBatch()
	Filter(targetBucket string, entry Entry)
}

// BatchHandle is a shared mapping from target bucket to the ordered
// sequence of events staged during one batch. Its lifetime is scoped to a
// single batch, so no staged event ever leaks across batches.
type BatchHandle struct {
	mu     sync.Mutex
	staged map[string][]event.Canonical
	order  []event.Canonical
}

// NewBatchHandle returns an empty handle.
func NewBatchHandle() *BatchHandle {
	return &BatchHandle{staged: map[string][]event.Canonical{}}
}

// Stage appends evt under targetBucket.
func (h *BatchHandle) Stage(targetBucket string, evt event.Canonical) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.staged[targetBucket] = append(h.staged[targetBucket], evt)
	h.order = append(h.order, evt)
}

// Events returns every staged event in the order it was staged, regardless
// of which target bucket it was staged under. A single batch can mix
// entries staged under the reader's own target bucket with entries staged
// under the well-known users-bucket/metastore containers (bucket-lifecycle
// records interleaved with object records on the same raft partition), so
// publish order must follow insertion order, not map-ranging order.
func (h *BatchHandle) Events() []event.Canonical {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]event.Canonical, len(h.order))
	copy(out, h.order)
	return out
}

// SetBatch hands the current batch's handle to every filter.
func SetBatch(filters []Filter, handle *BatchHandle) {
	for _, f := range filters {
		f.SetEntryBatch(handle)
	}
}

// UnsetBatch clears every filter's handle at the end of a batch.
func UnsetBatch(filters []Filter) {
	for _, f := range filters {
		f.UnsetEntryBatch()
	}
}

// Chain runs entry through every filter in order. Extensions observe the
// same entry the reader parsed and may stage further events alongside the
// reader's own.
func Chain(filters []Filter, targetBucket string, entry Entry) {
	for _, f := range filters {
		f.Filter(targetBucket, entry)
	}
}
