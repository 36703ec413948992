package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/objectstream/ingestd/pkg/auditlog"
	"github.com/objectstream/ingestd/pkg/config"
	"github.com/objectstream/ingestd/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStore(t *testing.T) *auditlog.Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	store, err := auditlog.Open(ctx, database.Config{
		Host:         host,
		Port:         port.Int(),
		User:         "test",
		Password:     "test",
		Database:     "test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestService_PrunesOldBatchRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Finished well past the 1-day retention window, so runAll removes it.
	old := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, store.Record(ctx, auditlog.BatchRun{
		BucketID:     "bucket-a",
		TargetBucket: "zenkobucket-bucket-a",
		Phase:        "tail",
		StartedAt:    old,
		FinishedAt:   &old,
	}))

	retention := &config.RetentionConfig{
		BatchRunRetentionDays: 1,
		CleanupInterval:       time.Hour,
	}
	svc := NewService(retention, store)
	svc.runAll(ctx)

	runs, err := store.Recent(ctx, "bucket-a", 1)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestService_PreservesRecentBatchRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Record(ctx, auditlog.BatchRun{
		BucketID:     "bucket-b",
		TargetBucket: "zenkobucket-bucket-b",
		Phase:        "snapshot",
		StartedAt:    now,
		FinishedAt:   &now,
	}))

	retention := &config.RetentionConfig{
		BatchRunRetentionDays: 365,
		CleanupInterval:       time.Hour,
	}
	svc := NewService(retention, store)
	svc.runAll(ctx)

	runs, err := store.Recent(ctx, "bucket-b", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
