// Package coordinator abstracts the strongly-consistent hierarchical
// key-value store the progress store and backlog checks rely on: create
// if absent, compare-and-set, get, list children, and atomic multi-level
// create. The zk-backed implementation talks to a real
// ZooKeeper-compatible ensemble; tests use the in-memory fake in fake.go.
package coordinator

import (
	"context"
	"errors"
)

// ErrNoNode marks a missing path.
var ErrNoNode = errors.New("coordinator: no such node")

// ErrVersionMismatch marks a failed compare-and-set.
var ErrVersionMismatch = errors.New("coordinator: version mismatch")

// Coordinator is the hierarchical KV store contract every progress and
// backlog operation is built on.
type Coordinator interface {
	// Get returns a node's data and version. Returns ErrNoNode if absent.
	Get(ctx context.Context, path string) (data []byte, version int32, err error)

	// Create creates path with data if it does not already exist. It is a
	// no-op (not an error) if the node already exists.
	Create(ctx context.Context, path string, data []byte) error

	// CAS sets path's data only if its current version equals
	// expectedVersion. Returns ErrVersionMismatch on conflict, ErrNoNode if
	// the path is absent.
	CAS(ctx context.Context, path string, data []byte, expectedVersion int32) error

	// MkdirP creates every path segment from the root down that does not
	// yet exist, mirroring ZooKeeper's multi-level create.
	MkdirP(ctx context.Context, path string) error

	// Children lists the immediate child names of path.
	Children(ctx context.Context, path string) ([]string, error)

	// Close releases the session.
	Close() error
}
