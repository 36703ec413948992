package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrFakePublishFailure is returned by Fake when configured to fail.
var ErrFakePublishFailure = errors.New("bus: fake publish failure")

// Fake is an in-memory Producer/Admin for reader and backlog tests.
type Fake struct {
	mu              sync.Mutex
	Published       []Record
	FailNextPublish bool
	Watermarks      map[string]map[int32]int64
	GroupOffsetsBy  map[string]map[int32]int64
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Watermarks:     map[string]map[int32]int64{},
		GroupOffsetsBy: map[string]map[int32]int64{},
	}
}

func (f *Fake) PublishBatch(ctx context.Context, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextPublish {
		f.FailNextPublish = false
		return ErrFakePublishFailure
	}
	f.Published = append(f.Published, records...)
	return nil
}

func (f *Fake) HighWatermarks(ctx context.Context, topic string) (map[int32]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Watermarks[topic], nil
}

func (f *Fake) GroupOffsets(ctx context.Context, topic, group string) (map[int32]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GroupOffsetsBy[topic+"/"+group], nil
}

func (f *Fake) Close() {}
