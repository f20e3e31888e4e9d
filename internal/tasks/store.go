package tasks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/shared"
)

var (
	ErrStoreClosed = errors.New("job store closed")
	ErrUnknownJob  = errors.New("unknown job")
)

// ChangeFunc observes a committed change. It runs with the store locked and
// must not call back into the store.
type ChangeFunc func(job models.TransferJob, jobs []models.TransferJob)

// Store holds the job records of one batch, keyed by playlist id.
//
// Every write is a field-level [models.JobUpdate] merge serialized by a single mutex.
// After [Store.Close] no record changes again.
type Store struct {
	mu       sync.Mutex
	order    []string
	jobs     map[string]models.TransferJob
	closed   bool
	now      func() time.Time
	onChange ChangeFunc
}

// NewStore creates an empty store. A nil clock uses [time.Now].
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{jobs: make(map[string]models.TransferJob), now: now}
}

// OnChange registers fn to be called after every committed change.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Seed creates an Idle record per playlist in submission order.
//
// Playlist ids key the records, so empty or repeated ids are rejected and nothing is stored.
func (s *Store) Seed(playlists []models.PlaylistRef) error {
	seen := make(map[string]bool, len(playlists))
	for i, p := range playlists {
		if p.ID == "" {
			return fmt.Errorf("%w: playlist %d has no id", shared.ErrInvalidPlaylist, i+1)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate playlist id %q", shared.ErrInvalidPlaylist, p.ID)
		}
		seen[p.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	now := s.now()
	for _, p := range playlists {
		if _, ok := s.jobs[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.jobs[p.ID] = models.NewTransferJob(p, now)
	}
	return nil
}

// Merge applies u to the record of playlistID.
func (s *Store) Merge(playlistID string, u models.JobUpdate) (models.TransferJob, error) {
	return s.Apply(playlistID, func(models.TransferJob) *models.JobUpdate { return &u })
}

// Apply computes an update from the current record and merges it atomically.
// A nil update leaves the record untouched.
func (s *Store) Apply(playlistID string, fn func(models.TransferJob) *models.JobUpdate) (models.TransferJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[playlistID]
	if !ok {
		return models.TransferJob{}, fmt.Errorf("%w: %s", ErrUnknownJob, playlistID)
	}
	if s.closed {
		return job, ErrStoreClosed
	}

	u := fn(job)
	if u == nil {
		return job, nil
	}

	next, err := job.Merge(*u, s.now())
	if err != nil {
		return job, err
	}
	s.jobs[playlistID] = next

	if s.onChange != nil {
		s.onChange(next, s.snapshot())
	}
	return next, nil
}

// Get returns a copy of the record for playlistID.
func (s *Store) Get(playlistID string) (models.TransferJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[playlistID]
	return job, ok
}

// Jobs returns copies of all records in submission order.
func (s *Store) Jobs() []models.TransferJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Summary aggregates the current records.
func (s *Store) Summary() Summary {
	return Aggregate(s.Jobs())
}

// Close freezes the store. Later writes fail with [ErrStoreClosed].
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether [Store.Close] was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) snapshot() []models.TransferJob {
	out := make([]models.TransferJob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}
