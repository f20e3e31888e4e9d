package tasks

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/services"
	"github.com/desertthunder/xferctl/internal/shared"
)

var errNetwork = errors.New("connection reset")

type statusReply struct {
	resp *services.StatusResponse
	err  error
}

// fakeAPI scripts Transfer Start replies by playlist id and Transfer Status replies by job id.
// Status replies are consumed in order; the last one repeats.
type fakeAPI struct {
	mu          sync.Mutex
	starts      []services.StartRequest
	startResp   map[string]*services.StartResponse
	startErr    map[string]error
	statuses    map[string][]statusReply
	statusCalls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		startResp:   make(map[string]*services.StartResponse),
		startErr:    make(map[string]error),
		statuses:    make(map[string][]statusReply),
		statusCalls: make(map[string]int),
	}
}

// queue makes playlistID start as jobID and answer with replies.
func (f *fakeAPI) queue(playlistID, jobID string, replies ...statusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startResp[playlistID] = &services.StartResponse{OK: true, StatusCode: 200, JobID: jobID, Status: "queued"}
	f.statuses[jobID] = replies
}

func (f *fakeAPI) StartTransfer(ctx context.Context, token string, req services.StartRequest) (*services.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if err := f.startErr[req.SourcePlaylistID]; err != nil {
		return nil, err
	}
	if resp, ok := f.startResp[req.SourcePlaylistID]; ok {
		return resp, nil
	}
	return &services.StartResponse{OK: true, StatusCode: 200}, nil
}

func (f *fakeAPI) TransferStatus(ctx context.Context, token, jobID string) (*services.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.statusCalls[jobID]
	f.statusCalls[jobID] = n + 1

	replies := f.statuses[jobID]
	if len(replies) == 0 {
		return nil, errNetwork
	}
	r := replies[min(n, len(replies)-1)]
	return r.resp, r.err
}

func (f *fakeAPI) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeAPI) startedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.starts))
	for _, s := range f.starts {
		ids = append(ids, s.SourcePlaylistID)
	}
	return ids
}

func (f *fakeAPI) calls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[jobID]
}

func status(s string) statusReply {
	return statusReply{resp: &services.StatusResponse{Status: s}}
}

func completed(total int) statusReply {
	return statusReply{resp: &services.StatusResponse{
		Status:          "completed",
		TotalTracks:     models.Ptr(total),
		ProcessedTracks: models.Ptr(total),
	}}
}

func failure() statusReply {
	return statusReply{err: errNetwork}
}

type fakeSession struct {
	token        string
	err          error
	disconnected map[providers.Provider]bool
}

func (s *fakeSession) IsConnected(p providers.Provider) bool { return !s.disconnected[p] }

func (s *fakeSession) AuthToken() (string, error) { return s.token, s.err }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fastOptions ticks every millisecond and logs nowhere.
func fastOptions() Options {
	return Options{
		PollInterval:     time.Millisecond,
		EstimateInterval: time.Millisecond,
		StartRateLimit:   1000,
		Logger:           shared.NewLogger(io.Discard),
	}
}

// queuedStore returns a store holding one Queued job for playlist p1 with remote id j1.
func queuedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(nil)
	if err := store.Seed([]models.PlaylistRef{{ID: "p1", Name: "Road Trip"}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := store.Merge("p1", models.JobUpdate{Status: models.Ptr(models.StatusStarting)}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if _, err := store.Merge("p1", models.JobUpdate{JobID: models.Ptr("j1"), Status: models.Ptr(models.StatusQueued)}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	return store
}

func waitBatch(t *testing.T, b *Batch) Summary {
	t.Helper()
	select {
	case <-b.Done():
		return b.Summary()
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not finish")
		return Summary{}
	}
}

// eventually polls cond until it holds or a deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
