// Package snapshot turns a source bucket's current content into a finite
// sequence of synthetic put events, as if that content had been written
// fresh into the target.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/objectstream/ingestd/pkg/event"
	"github.com/objectstream/ingestd/pkg/progress"
	"github.com/objectstream/ingestd/pkg/sourceclient"
)

// DefaultFanOut bounds the number of concurrent metadata fetches per
// bucket.
const DefaultFanOut = 10

// Result is one snapshot batch: its events in original list order, and the
// init state the batch cycle must checkpoint afterward.
type Result struct {
	Events []event.Canonical
	Init   progress.InitState
}

// Producer drives the snapshot algorithm for one source bucket.
type Producer struct {
	client       *sourceclient.Client
	targetBucket string
	fanOut       int64
}

// NewProducer builds a Producer for one source bucket's client. fanOut
// bounds concurrent metadata fetches; 0 means DefaultFanOut.
func NewProducer(client *sourceclient.Client, targetBucket string, fanOut int64) *Producer {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	return &Producer{client: client, targetBucket: targetBucket, fanOut: fanOut}
}

// Produce runs one snapshot batch starting from cont (the bucket's current
// InitState), resolving partitionID, capturing cseq before listing begins,
// listing one page of objects, and fetching metadata for each with bounded
// parallelism. Missing metadata is logged and skipped, not fatal.
func (p *Producer) Produce(ctx context.Context, bucket string, cont progress.InitState) (Result, error) {
	partitionID, err := p.client.LookupPartition(ctx, bucket)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: lookup partition: %w", err)
	}

	cseq, err := p.captureCseq(ctx, partitionID, cont)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: capture cseq: %w", err)
	}

	keyMarker := ""
	versionMarker := ""
	if cont.KeyMarker != nil {
		keyMarker = *cont.KeyMarker
	}
	if cont.VersionMarker != nil {
		versionMarker = *cont.VersionMarker
	}

	page, err := p.client.ListObjectsPage(ctx, bucket, keyMarker, versionMarker)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: list objects: %w", err)
	}

	events, err := p.fetchMetadata(ctx, bucket, page.Keys)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: fetch metadata: %w", err)
	}

	init := progress.InitState{
		IsStatusComplete: !page.IsTruncated,
		Cseq:             cseq,
	}
	if page.IsTruncated {
		init.KeyMarker = &page.NextKeyMarker
		init.VersionMarker = &page.NextVersionIDMarker
	}
	// Preserve the cseq captured at the original snapshot start across a
	// multi-page restart.
	if cont.Cseq != nil {
		init.Cseq = cont.Cseq
	}

	return Result{Events: events, Init: init}, nil
}

// captureCseq resolves the tail log's current head. It is captured once,
// at the first page of a snapshot, and held fixed across continuation
// pages so no live mutation during the snapshot is missed.
func (p *Producer) captureCseq(ctx context.Context, partitionID string, cont progress.InitState) (*int64, error) {
	if cont.Cseq != nil {
		return cont.Cseq, nil
	}
	stream, err := p.client.ReadLog(ctx, partitionID, 0, 0, true)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return stream.Info().Cseq, nil
}

func (p *Producer) fetchMetadata(ctx context.Context, bucket string, keys []string) ([]event.Canonical, error) {
	events := make([]event.Canonical, len(keys))
	present := make([]bool, len(keys))
	sem := semaphore.NewWeighted(p.fanOut)
	errs := make(chan error, len(keys))

	for i, key := range keys {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int, key string) {
			defer sem.Release(1)
			meta, err := p.client.GetObjectMetadata(ctx, bucket, key)
			if err != nil {
				if errors.Is(err, sourceclient.ErrNotFound) {
					slog.Warn("snapshot: object metadata missing, skipping", "bucket", bucket, "key", key)
					errs <- nil
					return
				}
				errs <- fmt.Errorf("fetch metadata for %q: %w", key, err)
				return
			}
			evt, buildErr := event.NewObjectPutEvent(key, meta, p.targetBucket)
			if buildErr != nil {
				errs <- buildErr
				return
			}
			events[i] = evt
			present[i] = true
			errs <- nil
		}(i, key)
	}

	for range keys {
		if err := <-errs; err != nil {
			return nil, err
		}
	}

	out := make([]event.Canonical, 0, len(keys))
	for i, ok := range present {
		if ok {
			out = append(out, events[i])
		}
	}
	return out, nil
}
