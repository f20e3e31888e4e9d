package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/services"
	"github.com/desertthunder/xferctl/internal/shared"
)

// SessionProvider exposes the signed-in user's connections and token.
type SessionProvider interface {
	IsConnected(p providers.Provider) bool
	AuthToken() (string, error)
}

// Orchestrator owns the current batch. Launching a new batch tears down the previous one.
type Orchestrator struct {
	api     services.TransferAPI
	session SessionProvider
	opts    Options

	mu      sync.Mutex
	current *Batch
}

// NewOrchestrator creates an orchestrator sending transfers through api.
func NewOrchestrator(api services.TransferAPI, session SessionProvider, opts Options) *Orchestrator {
	return &Orchestrator{api: api, session: session, opts: opts.withDefaults()}
}

// Launch checks the preconditions of req and starts it in the background.
//
// Precondition failures return an error before any job exists or any call is made.
// The batch stops early when ctx is done or it is cancelled.
func (o *Orchestrator) Launch(ctx context.Context, req LaunchRequest, progress chan<- ProgressUpdate) (*Batch, error) {
	src, dst, err := req.Validate()
	if err != nil {
		return nil, err
	}

	token, err := o.session.AuthToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, shared.ErrMissingToken
	}
	for _, p := range []providers.Provider{src, dst} {
		if !o.session.IsConnected(p) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotConnected, p.Name())
		}
	}

	id := shared.GenerateID()
	opts := o.opts
	opts.Logger = shared.WithLogger(o.opts.Logger, "batch", id[:8])

	store := NewStore(opts.Now)
	launcher := NewLauncher(o.api, store, opts)
	if err := launcher.Prepare(req, token); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil {
		o.current.Cancel()
	}

	b := newBatch(ctx, id, store, launcher, progress, opts)
	o.current = b
	go b.run()
	return b, nil
}

// Current returns the most recently launched batch, or nil.
func (o *Orchestrator) Current() *Batch {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Close cancels the current batch, if any.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		o.current.Cancel()
	}
}

// Batch is the set of jobs created by one launch.
type Batch struct {
	id        string
	store     *Store
	launcher  *Launcher
	progress  chan<- ProgressUpdate
	logger    *log.Logger
	startedAt time.Time
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	finished  bool
	cancelled bool
}

func newBatch(
	parent context.Context,
	id string,
	store *Store,
	launcher *Launcher,
	progress chan<- ProgressUpdate,
	opts Options,
) *Batch {
	ctx, cancel := context.WithCancel(parent)
	b := &Batch{
		id:        id,
		store:     store,
		launcher:  launcher,
		progress:  progress,
		logger:    opts.Logger,
		startedAt: opts.Now(),
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	// Records freeze as soon as ctx ends, before any loop observes it.
	context.AfterFunc(ctx, store.Close)

	store.OnChange(func(job models.TransferJob, jobs []models.TransferJob) {
		sendProgress(progress, jobUpdate(id, phaseOf(jobs), job, Aggregate(jobs)))
	})
	return b
}

func (b *Batch) run() {
	defer close(b.done)

	total := len(b.store.Jobs())
	b.logger.Info("batch started", "playlists", total)
	sendProgress(b.progress, ProgressUpdate{
		BatchID: b.id,
		Phase:   PhaseLaunching,
		Total:   total,
		Message: fmt.Sprintf("Starting %d transfers...", total),
		Summary: b.store.Summary(),
	})

	b.launcher.Run(b.ctx)

	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.cancelled = true
	} else {
		b.finished = true
	}
	cancelled := b.cancelled
	b.mu.Unlock()

	b.store.Close()
	b.cancel()

	s := b.store.Summary()
	phase := PhaseDone
	if cancelled {
		phase = PhaseCancelled
		b.logger.Warn("batch cancelled", "completed", s.CompletedCount, "failed", s.FailedCount, "total", s.Total)
	} else {
		b.logger.Info("batch finished",
			"completed", s.CompletedCount,
			"failed", s.FailedCount,
			"total", s.Total,
			"elapsed", b.now().Sub(b.startedAt).Round(time.Millisecond),
		)
	}
	sendProgress(b.progress, batchDoneUpdate(b.id, phase, s))
}

// ID returns the batch identifier.
func (b *Batch) ID() string { return b.id }

// StartedAt returns the launch time.
func (b *Batch) StartedAt() time.Time { return b.startedAt }

// Done is closed once the batch stops.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch stops and returns the final summary.
func (b *Batch) Wait() Summary {
	<-b.done
	return b.store.Summary()
}

// Cancel stops every poller and estimator of the batch and waits for them to exit.
// Job records are frozen before any loop is told to stop.
func (b *Batch) Cancel() {
	b.mu.Lock()
	if !b.finished {
		b.cancelled = true
	}
	b.mu.Unlock()

	b.store.Close()
	b.cancel()
	<-b.done
}

// Phase reports where the batch is in its lifecycle.
func (b *Batch) Phase() Phase {
	b.mu.Lock()
	finished, cancelled := b.finished, b.cancelled
	b.mu.Unlock()

	switch {
	case cancelled:
		return PhaseCancelled
	case finished:
		return PhaseDone
	default:
		return phaseOf(b.store.Jobs())
	}
}

// Jobs returns the job records in submission order.
func (b *Batch) Jobs() []models.TransferJob { return b.store.Jobs() }

// Job returns the record for playlistID.
func (b *Batch) Job(playlistID string) (models.TransferJob, bool) { return b.store.Get(playlistID) }

// Summary aggregates the current job records.
func (b *Batch) Summary() Summary { return b.store.Summary() }
