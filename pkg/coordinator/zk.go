package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-zookeeper/zk"
)

// ZKCoordinator is the production Coordinator, backed by a ZooKeeper
// ensemble via github.com/go-zookeeper/zk.
type ZKCoordinator struct {
	conn *zk.Conn
}

// Dial connects to the ensemble, retrying the initial handshake with
// exponential backoff. Only session bring-up retries here; mid-batch
// Coordinator failures abort the batch and wait for the next tick.
func Dial(ctx context.Context, servers []string, sessionTimeout time.Duration) (*ZKCoordinator, error) {
	var conn *zk.Conn
	var events <-chan zk.Event

	op := func() error {
		c, evCh, err := zk.Connect(servers, sessionTimeout)
		if err != nil {
			return err
		}
		conn, events = c, evCh
		return nil
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("coordinator: dial: %w", err)
	}

	go func() {
		for ev := range events {
			if ev.State == zk.StateExpired || ev.Err != nil {
				slog.Warn("zookeeper session event", "state", ev.State, "err", ev.Err)
			}
		}
	}()

	return &ZKCoordinator{conn: conn}, nil
}

func (z *ZKCoordinator) Get(ctx context.Context, path string) ([]byte, int32, error) {
	data, stat, err := z.conn.Get(path)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, 0, ErrNoNode
	}
	if err != nil {
		return nil, 0, fmt.Errorf("coordinator: get %s: %w", path, err)
	}
	return data, stat.Version, nil
}

func (z *ZKCoordinator) Create(ctx context.Context, path string, data []byte) error {
	_, err := z.conn.Create(path, data, 0, zk.WorldACL(zk.PermAll))
	if errors.Is(err, zk.ErrNodeExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("coordinator: create %s: %w", path, err)
	}
	return nil
}

func (z *ZKCoordinator) CAS(ctx context.Context, path string, data []byte, expectedVersion int32) error {
	_, err := z.conn.Set(path, data, expectedVersion)
	if errors.Is(err, zk.ErrNoNode) {
		return ErrNoNode
	}
	if errors.Is(err, zk.ErrBadVersion) {
		return ErrVersionMismatch
	}
	if err != nil {
		return fmt.Errorf("coordinator: cas %s: %w", path, err)
	}
	return nil
}

func (z *ZKCoordinator) MkdirP(ctx context.Context, path string) error {
	if path == "" || path == "/" {
		return nil
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	current := ""
	for _, seg := range segments {
		current += "/" + seg
		exists, _, err := z.conn.Exists(current)
		if err != nil {
			return fmt.Errorf("coordinator: mkdirp exists %s: %w", current, err)
		}
		if !exists {
			if _, err := z.conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return fmt.Errorf("coordinator: mkdirp create %s: %w", current, err)
			}
		}
	}
	return nil
}

func (z *ZKCoordinator) Children(ctx context.Context, path string) ([]string, error) {
	children, _, err := z.conn.Children(path)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, ErrNoNode
	}
	if err != nil {
		return nil, fmt.Errorf("coordinator: children %s: %w", path, err)
	}
	return children, nil
}

func (z *ZKCoordinator) Close() error {
	z.conn.Close()
	return nil
}
