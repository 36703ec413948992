// Package progress stores per-bucket ingestion progress at a fixed
// Coordinator path layout: <root>/<targetBucket>/{init,logState/raft_<id>/logOffset}.
// All writes use the Coordinator's compare-and-set discipline; a failed
// CAS is left for the next batch cycle to retry, never silently dropped.
package progress

import (
	"context"
	"fmt"

	"github.com/objectstream/ingestd/pkg/coordinator"
)

// InitState is the snapshot-phase continuation record. A nil pointer field
// means the node was absent (never written).
type InitState struct {
	IsStatusComplete bool
	KeyMarker        *string
	VersionMarker    *string
	Cseq             *int64
}

// Store reads and writes one bucket's progress nodes.
type Store struct {
	coord        coordinator.Coordinator
	root         string
	targetBucket string
	partitionID  string
	vs           *versions
}

// NewStore builds a Store rooted at root for targetBucket, with logOffset
// nested under the given raft partition id.
func NewStore(coord coordinator.Coordinator, root, targetBucket, partitionID string) *Store {
	return &Store{coord: coord, root: root, targetBucket: targetBucket, partitionID: partitionID, vs: newVersions()}
}

func (s *Store) versions() *versions {
	return s.vs
}

func (s *Store) initPath() string {
	return fmt.Sprintf("%s/%s/init", s.root, s.targetBucket)
}

func (s *Store) logOffsetPath() string {
	return fmt.Sprintf("%s/%s/logState/raft_%s/logOffset", s.root, s.targetBucket, s.partitionID)
}

// EnsurePaths creates every ancestor path so Get/CAS calls against the
// bucket's nodes never fail with ErrNoNode on first use.
func (s *Store) EnsurePaths(ctx context.Context) error {
	if err := s.coord.MkdirP(ctx, fmt.Sprintf("%s/%s/logState/raft_%s", s.root, s.targetBucket, s.partitionID)); err != nil {
		return fmt.Errorf("progress: ensure paths: %w", err)
	}
	return nil
}

// initNode is the wire shape persisted at the init path.
type initNode struct {
	IsStatusComplete bool    `json:"isStatusComplete"`
	KeyMarker        *string `json:"keyMarker"`
	VersionMarker    *string `json:"versionMarker"`
	Cseq             *int64  `json:"cseq"`
}
