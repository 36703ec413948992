package reader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/ingestd/pkg/bus"
	"github.com/objectstream/ingestd/pkg/coordinator"
	"github.com/objectstream/ingestd/pkg/progress"
	"github.com/objectstream/ingestd/pkg/sourceclient"
)

type fakeSource struct {
	mu          sync.Mutex
	readLogResp string
}

func newFakeSourceServer(t *testing.T) (*httptest.Server, *fakeSource) {
	fs := &fakeSource{readLogResp: `{"info":{"start":null,"cseq":null,"prune":null},"log":null}`}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("raftId") {
			fmt.Fprint(w, `["partition-1"]`)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/bucket1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("metadata") {
			fmt.Fprint(w, `{"size":10}`)
			return
		}
		fmt.Fprint(w, `{"Contents":[{"key":"obj1"},{"key":"obj2"}],"IsTruncated":false}`)
	})
	mux.HandleFunc("/_/raftLog", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fmt.Fprint(w, fs.readLogResp)
	})
	return httptest.NewServer(mux), fs
}

func newTestConfig(t *testing.T, srv *httptest.Server) Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return Config{
		SourceBucket: "bucket1",
		TargetBucket: "zenkobucket-bucket1",
		Topic:        "ingest-topic",
		MaxRead:      100,
		Source: sourceclient.Config{
			Bucket: "bucket1",
			Host:   u.Hostname(),
			Port:   port,
			Auth:   sourceclient.Credentials{AccessKey: "AKIDEXAMPLE", SecretKey: "secret"},
		},
	}
}

func TestSnapshotThenTailBatchCycle(t *testing.T) {
	srv, fs := newFakeSourceServer(t)
	defer srv.Close()

	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()

	r := New(newTestConfig(t, srv), fake, "/ingestion", b)
	require.NoError(t, r.Setup(ctx))
	assert.Equal(t, Ready, r.State())

	outcome, err := r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", outcome.Phase)
	assert.Equal(t, 2, outcome.EventsPublished)
	assert.Len(t, b.Published, 2)

	// The snapshot phase wrote isStatusComplete=true; the next tick must
	// run the tail phase against the (currently empty) log.
	fs.mu.Lock()
	fs.readLogResp = `{"info":{"start":0,"cseq":2,"prune":null},"log":[{"db":"bucket1","entries":[{"key":"obj3","value":"v3"}]}]}`
	fs.mu.Unlock()

	outcome, err = r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tail", outcome.Phase)
	assert.Equal(t, 1, outcome.EventsPublished)
	assert.Len(t, b.Published, 3)
}

func TestTickSkipsWhenInProgress(t *testing.T) {
	srv, _ := newFakeSourceServer(t)
	defer srv.Close()

	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()

	r := New(newTestConfig(t, srv), fake, "/ingestion", b)
	require.NoError(t, r.Setup(ctx))

	r.inProgress.Store(true)
	_, err := r.Tick(ctx)
	assert.ErrorIs(t, err, ErrBatchInProgress)
}

func TestSnapshotCompletesWithZeroEventsStillAdvancesOffset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("raftId") {
			fmt.Fprint(w, `["partition-1"]`)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/bucket1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Contents":[],"IsTruncated":false}`)
	})
	mux.HandleFunc("/_/raftLog", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"info":{"start":null,"cseq":7,"prune":null},"log":null}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()

	r := New(newTestConfig(t, srv), fake, "/ingestion", b)
	require.NoError(t, r.Setup(ctx))

	outcome, err := r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", outcome.Phase)
	assert.Equal(t, 0, outcome.EventsPublished)
	assert.Empty(t, b.Published)

	// An empty bucket still completes its snapshot with logOffset == cseq,
	// so the next batch tails from the correct head instead of replaying
	// the entire historical log from offset 0.
	offset, err := r.progress.ReadLogOffset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, offset)

	init, err := r.progress.ReadInit(ctx)
	require.NoError(t, err)
	assert.True(t, init.IsStatusComplete)
}

func TestTailBatchWithNoMatchingRecordsStillAdvancesOffset(t *testing.T) {
	srv, fs := newFakeSourceServer(t)
	defer srv.Close()
	// Records belong to a sibling bucket sharing this raft partition; none
	// match this reader's source bucket, so zero events are staged.
	fs.readLogResp = `{"info":{"start":0,"cseq":0,"prune":null},"log":[{"db":"other-bucket","entries":[{"key":"obj1","value":"v1"}]}]}`

	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()

	cfg := newTestConfig(t, srv)
	r := New(cfg, fake, "/ingestion", b)
	require.NoError(t, r.Setup(ctx))
	require.NoError(t, r.progress.WriteInit(ctx, &progress.InitState{IsStatusComplete: true}))

	outcome, err := r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tail", outcome.Phase)
	assert.Equal(t, 0, outcome.EventsPublished)
	assert.Empty(t, b.Published)

	offset, err := r.progress.ReadLogOffset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, offset)
}

func TestTailBatchPublishFailureDoesNotAdvance(t *testing.T) {
	srv, fs := newFakeSourceServer(t)
	defer srv.Close()
	fs.readLogResp = `{"info":{"start":0,"cseq":0,"prune":null},"log":[{"db":"bucket1","entries":[{"key":"obj1","value":"v1"}]}]}`

	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()

	cfg := newTestConfig(t, srv)
	r := New(cfg, fake, "/ingestion", b)
	require.NoError(t, r.Setup(ctx))
	_, err := r.progress.ReadInit(ctx)
	require.NoError(t, err)
	require.NoError(t, r.progress.WriteInit(ctx, &progress.InitState{IsStatusComplete: true}))

	b.FailNextPublish = true
	_, err = r.Tick(ctx)
	assert.Error(t, err)

	offset, err := r.progress.ReadLogOffset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, offset)
}
