package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/objectstream/ingestd/pkg/coordinator"
)

// versions tracks the last-observed Coordinator version per path so
// writeInit/writeLogOffset can CAS without the caller juggling versions
// itself.
type versions struct {
	mu sync.Mutex
	v  map[string]int32
}

func newVersions() *versions { return &versions{v: map[string]int32{}} }

func (vs *versions) set(path string, v int32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.v[path] = v
}

func (vs *versions) get(path string) int32 {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.v[path]
}

// ReadInit returns the bucket's snapshot continuation state. Any absent
// node is created (empty) and reported back with its fields nil/false.
func (s *Store) ReadInit(ctx context.Context) (InitState, error) {
	path := s.initPath()
	data, version, err := s.coord.Get(ctx, path)
	if errors.Is(err, coordinator.ErrNoNode) {
		if err := s.coord.Create(ctx, path, nil); err != nil {
			return InitState{}, fmt.Errorf("progress: create init node: %w", err)
		}
		data, version, err = s.coord.Get(ctx, path)
		if err != nil {
			return InitState{}, fmt.Errorf("progress: read init node after create: %w", err)
		}
	} else if err != nil {
		return InitState{}, fmt.Errorf("progress: read init node: %w", err)
	}
	s.versions().set(path, version)

	if len(data) == 0 {
		return InitState{}, nil
	}
	var n initNode
	if err := json.Unmarshal(data, &n); err != nil {
		return InitState{}, fmt.Errorf("progress: decode init node: %w", err)
	}
	return InitState{
		IsStatusComplete: n.IsStatusComplete,
		KeyMarker:        n.KeyMarker,
		VersionMarker:    n.VersionMarker,
		Cseq:             n.Cseq,
	}, nil
}

// WriteInit persists state's three fields atomically. A nil state is a
// no-op: the batch cycle did not pass through the snapshot phase, so there
// is nothing new to record.
func (s *Store) WriteInit(ctx context.Context, state *InitState) error {
	if state == nil {
		return nil
	}
	path := s.initPath()
	data, err := json.Marshal(initNode{
		IsStatusComplete: state.IsStatusComplete,
		KeyMarker:        state.KeyMarker,
		VersionMarker:    state.VersionMarker,
		Cseq:             state.Cseq,
	})
	if err != nil {
		return fmt.Errorf("progress: encode init node: %w", err)
	}
	if err := s.coord.CAS(ctx, path, data, s.versions().get(path)); err != nil {
		return fmt.Errorf("progress: cas init node: %w", err)
	}
	s.versions().set(path, s.versions().get(path)+1)
	return nil
}

// ReadLogOffset returns the bucket's current tail offset, 0 if the node is
// absent (never written).
func (s *Store) ReadLogOffset(ctx context.Context) (int64, error) {
	path := s.logOffsetPath()
	data, version, err := s.coord.Get(ctx, path)
	if errors.Is(err, coordinator.ErrNoNode) {
		if err := s.coord.Create(ctx, path, []byte("0")); err != nil {
			return 0, fmt.Errorf("progress: create log offset node: %w", err)
		}
		data, version, err = s.coord.Get(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("progress: read log offset node after create: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("progress: read log offset node: %w", err)
	}
	s.versions().set(path, version)

	if len(data) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("progress: parse log offset: %w", err)
	}
	return n, nil
}

// WriteLogOffset writes n only if it is strictly greater than the current
// value, keeping the offset monotonically non-decreasing.
func (s *Store) WriteLogOffset(ctx context.Context, n int64) error {
	current, err := s.ReadLogOffset(ctx)
	if err != nil {
		return err
	}
	if n <= current {
		return nil
	}
	path := s.logOffsetPath()
	if err := s.coord.CAS(ctx, path, []byte(strconv.FormatInt(n, 10)), s.versions().get(path)); err != nil {
		return fmt.Errorf("progress: cas log offset: %w", err)
	}
	s.versions().set(path, s.versions().get(path)+1)
	return nil
}
