package sync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hanpenneko/mossgrid/internal/store"
	"github.com/hanpenneko/mossgrid/internal/syncclient"
)

// fakeServer is an in-memory sync service: pushes append to a change log,
// pulls page it in server_seq order with the same 500-row page bound as
// the real service.
type fakeServer struct {
	mu      sync.Mutex
	seq     int64
	changes []syncclient.Change

	inits  int
	pushes int
	pulls  int

	// ops records the request order, and lastPullAfter the most recent
	// pull cursor the client sent.
	ops           []string
	lastPullAfter int64

	failPush bool
	failPull bool

	// blockPush, when non-nil, parks push handlers until closed;
	// enteredPush receives once per parked handler.
	blockPush   chan struct{}
	enteredPush chan struct{}

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/init", fs.handleInit)
	mux.HandleFunc("/push", fs.handlePush)
	mux.HandleFunc("/pull", fs.handlePull)
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) URL() string { return fs.srv.URL }

func (fs *fakeServer) handleInit(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.inits++
	fs.ops = append(fs.ops, "init")
	fs.mu.Unlock()
	json.NewEncoder(w).Encode(syncclient.InitResponse{OK: true})
}

func (fs *fakeServer) handlePush(w http.ResponseWriter, r *http.Request) {
	var req syncclient.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	block, entered := fs.blockPush, fs.enteredPush
	fs.mu.Unlock()
	if block != nil {
		entered <- struct{}{}
		<-block
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pushes++
	fs.ops = append(fs.ops, "push")
	if fs.failPush {
		http.Error(w, "push rejected", http.StatusInternalServerError)
		return
	}

	for _, d := range req.Todos {
		fs.appendLocked("todo", d.ID, d)
	}
	for _, d := range req.Habits {
		fs.appendLocked("habit", d.ID, d)
	}
	for _, d := range req.Rules {
		fs.appendLocked("rule", d.ID, d)
	}
	for _, d := range req.Completions {
		fs.appendLocked("completion", d.HabitID+"|"+d.HabitDay, d)
	}
	json.NewEncoder(w).Encode(syncclient.PushResponse{OK: true, LatestServerSeq: fs.seq})
}

func (fs *fakeServer) handlePull(w http.ResponseWriter, r *http.Request) {
	var req syncclient.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pulls++
	fs.ops = append(fs.ops, "pull")
	fs.lastPullAfter = req.AfterServerSeq
	if fs.failPull {
		http.Error(w, "pull rejected", http.StatusInternalServerError)
		return
	}

	var page []syncclient.Change
	for _, ch := range fs.changes {
		if ch.ServerSeq <= req.AfterServerSeq {
			continue
		}
		page = append(page, ch)
		if len(page) == pullPageSize {
			break
		}
	}
	json.NewEncoder(w).Encode(syncclient.PullResponse{Changes: page, LatestServerSeq: fs.seq})
}

// appendLocked adds one entry to the change log; callers hold fs.mu.
func (fs *fakeServer) appendLocked(entityType, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	fs.seq++
	fs.changes = append(fs.changes, syncclient.Change{
		ServerSeq:   fs.seq,
		EntityType:  entityType,
		EntityKey:   key,
		PayloadJSON: string(data),
	})
}

// seed appends a change outside any push, for paging tests.
func (fs *fakeServer) seed(entityType, key string, payload any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.appendLocked(entityType, key, payload)
}

func (fs *fakeServer) counts() (inits, pushes, pulls int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.inits, fs.pushes, fs.pulls
}

// newTestSyncer wires a fresh store with a sync key to the fake server.
func newTestSyncer(t *testing.T, fs *fakeServer) (*Syncer, *store.Store) {
	t.Helper()
	st, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SetSyncKey("test-key"); err != nil {
		t.Fatalf("set sync key: %v", err)
	}
	return New(st, syncclient.New(fs.URL())), st
}

// nextSecond waits out the current epoch second. Envelopes stamp in whole
// seconds, so a re-stamp within the same second by the same device is an
// identical envelope and will not replicate.
func nextSecond() {
	for t0 := time.Now().Unix(); time.Now().Unix() <= t0; {
		time.Sleep(20 * time.Millisecond)
	}
}

func newClient(fs *fakeServer) *syncclient.Client {
	return syncclient.New(fs.URL())
}

func mustChange(seq int64, entityType, key, payload string) syncclient.Change {
	return syncclient.Change{ServerSeq: seq, EntityType: entityType, EntityKey: key, PayloadJSON: payload}
}

func seededTodo(i int) syncclient.TodoDTO {
	return syncclient.TodoDTO{
		ID:        fmt.Sprintf("seed-%04d", i),
		Title:     fmt.Sprintf("seeded %d", i),
		SortOrder: i + 1,
		UpdatedAt: 100,
		UpdatedBy: "seed-device",
	}
}
