package tasks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/services"
	"github.com/desertthunder/xferctl/internal/shared"
)

var (
	completedStatuses  = statusSet("completed", "success", "finished", "done")
	failedStatuses     = statusSet("failed", "error", "cancelled", "canceled", "aborted")
	processingStatuses = statusSet("processing", "running", "in_progress", "in-progress", "started", "transferring", "matching")
	queuedStatuses     = statusSet("queued", "pending", "waiting")
)

func statusSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Poller follows one remote job until it reaches a terminal status.
type Poller struct {
	api        services.TransferAPI
	store      *Store
	token      string
	playlistID string
	jobID      string
	opts       Options
	logger     *log.Logger
	attachedAt time.Time
	onSignal   func()
}

// NewPoller attaches a poller to the record of playlistID. The job timeout counts from here.
func NewPoller(api services.TransferAPI, store *Store, token, playlistID, jobID string, opts Options) *Poller {
	opts = opts.withDefaults()
	return &Poller{
		api:        api,
		store:      store,
		token:      token,
		playlistID: playlistID,
		jobID:      jobID,
		opts:       opts,
		logger:     shared.WithLogger(opts.Logger, "playlist", playlistID, "job", jobID),
		attachedAt: opts.Now(),
	}
}

// OnSignal registers fn to run after a poll lands real progress or a terminal status.
func (p *Poller) OnSignal(fn func()) {
	p.onSignal = fn
}

// Run polls immediately, then on every tick, until the job is terminal or ctx is done.
func (p *Poller) Run(ctx context.Context) models.TransferJob {
	job, done := p.Poll(ctx)
	if done {
		return job
	}

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			job, _ := p.store.Get(p.playlistID)
			return job
		case <-ticker.C:
		}

		if job, done = p.Poll(ctx); done {
			return job
		}
	}
}

// Poll performs a single status fetch and merge. It reports true when polling should stop.
func (p *Poller) Poll(ctx context.Context) (models.TransferJob, bool) {
	job, ok := p.store.Get(p.playlistID)
	if !ok || ctx.Err() != nil || job.IsTerminal() {
		return job, true
	}

	if p.opts.JobTimeout > 0 {
		if elapsed := p.opts.Now().Sub(p.attachedAt); elapsed >= p.opts.JobTimeout {
			u := TimeoutUpdate(elapsed)
			return p.commit(func(models.TransferJob) *models.JobUpdate { return &u })
		}
	}

	resp, err := p.api.TransferStatus(ctx, p.token, p.jobID)
	if ctx.Err() != nil {
		return job, true
	}

	if err != nil {
		p.logger.Debug("status poll failed", "failures", job.ConsecutiveFailures+1, "err", err)
		return p.commit(func(cur models.TransferJob) *models.JobUpdate {
			u := PollFailureUpdate(cur, err, p.opts.MaxConsecutiveFailures)
			return &u
		})
	}

	return p.commit(func(cur models.TransferJob) *models.JobUpdate {
		u := StatusUpdate(cur, resp)
		return &u
	})
}

func (p *Poller) commit(fn func(models.TransferJob) *models.JobUpdate) (models.TransferJob, bool) {
	job, err := p.store.Apply(p.playlistID, fn)
	if err != nil {
		if !errors.Is(err, ErrStoreClosed) {
			p.logger.Error("could not record poll result", "err", err)
		}
		return job, true
	}

	if (job.RealProgress || job.IsTerminal()) && p.onSignal != nil {
		p.onSignal()
	}
	return job, job.IsTerminal()
}

// StatusUpdate maps a successful status response onto job.
//
// Progress is only written when the response carries a real signal, so an
// estimate in progress keeps running across empty polls.
func StatusUpdate(job models.TransferJob, resp *services.StatusResponse) models.JobUpdate {
	u := models.JobUpdate{ConsecutiveFailures: models.Ptr(0)}

	status := strings.ToLower(strings.TrimSpace(resp.Status))
	if status != "" {
		u.RemoteStatus = &status
	}

	u.TotalTracks = resp.TotalTracks
	u.ProcessedTracks = resp.ProcessedTracks
	u.SucceededTracks = resp.SuccessfulTracks
	u.FailedTracks = resp.FailedTracks
	for _, f := range resp.Failures {
		u.Failures = append(u.Failures, models.TrackFailure(f))
	}

	msg := resp.Message
	if msg == "" {
		msg = resp.Stage
	}
	if msg != "" {
		u.Message = &msg
	}

	if pct, real := progressSignal(resp); real {
		u.ProgressPercent = pct
		u.SyntheticProgress = models.Ptr(false)
		u.RealSignal = true
	}

	switch {
	case completedStatuses[status] || resp.Complete:
		u.Status = models.Ptr(models.StatusCompleted)
		u.SyntheticProgress = models.Ptr(false)
		if n := firstPositive(resp.TotalTracks, resp.ProcessedTracks); n > 0 {
			u.TotalTracks = &n
			u.ProcessedTracks = &n
		}
		if u.Message == nil {
			u.Message = models.Ptr("Transfer completed")
		}
	case failedStatuses[status] || resp.Failed:
		u.Status = models.Ptr(models.StatusFailed)
		u.SyntheticProgress = models.Ptr(false)
		if u.Message == nil {
			u.Message = models.Ptr("Transfer failed")
		}
	case processingStatuses[status]:
		u.Status = models.Ptr(models.StatusProcessing)
	case queuedStatuses[status]:
		u.Status = models.Ptr(models.StatusQueued)
	}
	return u
}

// progressSignal reports whether resp carries real progress and, when it can be
// derived, the percentage from an explicit progress value (0..1 or 0..100) or the track counters.
func progressSignal(resp *services.StatusResponse) (*int, bool) {
	total := deref(resp.TotalTracks)
	processed := deref(resp.ProcessedTracks)
	explicit := resp.Progress != nil && *resp.Progress > 0
	if total <= 0 && processed <= 0 && !explicit {
		return nil, false
	}

	switch {
	case resp.Progress != nil:
		raw := *resp.Progress
		if raw <= 1 {
			raw *= 100
		}
		n := int(math.Round(math.Min(100, math.Max(0, raw))))
		return &n, true
	case total > 0:
		n := int(math.Round(math.Min(1, float64(max(processed, 0))/float64(total)) * 100))
		return &n, true
	default:
		return nil, true
	}
}

// PollFailureUpdate counts a failed fetch. Past maxFailures consecutive failures the job fails.
func PollFailureUpdate(job models.TransferJob, err error, maxFailures int) models.JobUpdate {
	n := job.ConsecutiveFailures + 1
	u := models.JobUpdate{ConsecutiveFailures: &n}
	if n > maxFailures {
		u.Status = models.Ptr(models.StatusFailed)
		u.Message = models.Ptr(fmt.Sprintf("Transfer status polling failed: %v", err))
		u.ProgressPercent = models.Ptr(0)
		u.SyntheticProgress = models.Ptr(false)
	}
	return u
}

// TimeoutUpdate fails a job that stayed in flight for too long.
func TimeoutUpdate(elapsed time.Duration) models.JobUpdate {
	return models.JobUpdate{
		Status:            models.Ptr(models.StatusFailed),
		Message:           models.Ptr(fmt.Sprintf("%v: no final status after %s", shared.ErrTimeout, elapsed.Round(time.Second))),
		SyntheticProgress: models.Ptr(false),
	}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func firstPositive(vals ...*int) int {
	for _, v := range vals {
		if n := deref(v); n > 0 {
			return n
		}
	}
	return 0
}
