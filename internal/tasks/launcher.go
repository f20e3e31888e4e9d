package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/services"
	"github.com/desertthunder/xferctl/internal/shared"
	"golang.org/x/time/rate"
)

// LaunchRequest is one user-initiated batch.
type LaunchRequest struct {
	SourceProvider      string               `json:"sourceProvider"`
	DestinationProvider string               `json:"destinationProvider"`
	Playlists           []models.PlaylistRef `json:"playlists"`
}

// Validate checks the request-level preconditions and returns the normalized providers.
func (r LaunchRequest) Validate() (providers.Provider, providers.Provider, error) {
	if len(r.Playlists) == 0 {
		return providers.Unsupported, providers.Unsupported, shared.ErrEmptyBatch
	}
	return providers.ValidateCombination(r.SourceProvider, r.DestinationProvider)
}

// Launcher starts the playlists of a batch and follows each one to a terminal status.
type Launcher struct {
	api     services.TransferAPI
	store   *Store
	opts    Options
	logger  *log.Logger
	limiter *rate.Limiter

	source      providers.Provider
	destination providers.Provider
	token       string
	playlists   []models.PlaylistRef
}

// NewLauncher creates a launcher writing into store.
func NewLauncher(api services.TransferAPI, store *Store, opts Options) *Launcher {
	opts = opts.withDefaults()
	return &Launcher{
		api:     api,
		store:   store,
		opts:    opts,
		logger:  opts.Logger,
		limiter: rate.NewLimiter(rate.Limit(opts.StartRateLimit), 1),
	}
}

// Prepare validates req and seeds one Idle record per playlist. Nothing is sent.
func (l *Launcher) Prepare(req LaunchRequest, token string) error {
	src, dst, err := req.Validate()
	if err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		return shared.ErrMissingToken
	}
	if err := l.store.Seed(req.Playlists); err != nil {
		return err
	}

	l.source, l.destination, l.token = src, dst, token
	l.playlists = append([]models.PlaylistRef(nil), req.Playlists...)
	return nil
}

// Launch prepares and runs req, returning once every job is terminal or ctx is done.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest, token string) error {
	if err := l.Prepare(req, token); err != nil {
		return err
	}
	l.Run(ctx)
	return nil
}

// Run transfers the prepared playlists.
//
// With a concurrency of one each playlist is followed to a terminal status
// before the next one starts. Otherwise a worker pool handles them.
func (l *Launcher) Run(ctx context.Context) {
	if l.opts.Concurrency <= 1 || len(l.playlists) <= 1 {
		for _, p := range l.playlists {
			if ctx.Err() != nil {
				return
			}
			l.transfer(ctx, p)
		}
		return
	}

	queue := make(chan models.PlaylistRef)
	var wg sync.WaitGroup
	for range min(l.opts.Concurrency, len(l.playlists)) {
		wg.Add(1)
		go l.worker(ctx, &wg, queue)
	}

dispatch:
	for _, p := range l.playlists {
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- p:
		}
	}
	close(queue)
	wg.Wait()
}

func (l *Launcher) worker(ctx context.Context, wg *sync.WaitGroup, queue <-chan models.PlaylistRef) {
	defer wg.Done()

	for p := range queue {
		if ctx.Err() != nil {
			return
		}
		l.transfer(ctx, p)
	}
}

// transfer runs the Start → poll cycle of a single playlist.
func (l *Launcher) transfer(ctx context.Context, p models.PlaylistRef) {
	logger := shared.WithLogger(l.logger, "playlist", p.ID)
	name := p.DisplayName()

	if providers.IsPseudoPlaylist(p.ID) {
		msg := fmt.Errorf("%w: %s", shared.ErrPseudoPlaylist, name).Error()
		l.finish(logger, l.fail(p.ID, msg))
		return
	}

	if _, err := l.store.Merge(p.ID, models.JobUpdate{
		Status:  models.Ptr(models.StatusStarting),
		Message: models.Ptr(fmt.Sprintf("Starting transfer of %s...", name)),
	}); err != nil {
		return
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return
	}

	resp, err := l.api.StartTransfer(ctx, l.token, services.StartRequest{
		SourceProvider:      l.source.String(),
		DestinationProvider: l.destination.String(),
		SourcePlaylistID:    p.ID,
		NewPlaylistName:     name,
	})
	if ctx.Err() != nil {
		return
	}

	switch {
	case err != nil:
		l.finish(logger, l.fail(p.ID, err.Error()))
	case !resp.OK:
		msg := resp.Reason()
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: Failed to transfer %s", resp.StatusCode, name)
		}
		l.finish(logger, l.fail(p.ID, msg))
	case resp.JobID == "":
		msg := resp.Message
		if msg == "" {
			msg = "Transfer completed"
		}
		job, err := l.store.Merge(p.ID, models.JobUpdate{
			Status:          models.Ptr(models.StatusCompleted),
			RemoteStatus:    remoteStatus(resp.Status),
			TotalTracks:     models.Ptr(resp.TotalTracks),
			ProcessedTracks: models.Ptr(resp.TotalTracks),
			Message:         &msg,
		})
		if err == nil {
			l.finish(logger, job)
		}
	default:
		msg := resp.Message
		if msg == "" {
			msg = "Transfer queued"
		}
		u := models.JobUpdate{
			JobID:        models.Ptr(resp.JobID),
			Status:       models.Ptr(models.StatusQueued),
			RemoteStatus: remoteStatus(resp.Status),
			Message:      &msg,
		}
		if resp.TotalTracks > 0 {
			u.TotalTracks = models.Ptr(resp.TotalTracks)
		}
		if _, err := l.store.Merge(p.ID, u); err != nil {
			return
		}
		logger.Debug("transfer queued", "job", resp.JobID)
		l.finish(logger, l.follow(ctx, p.ID, resp.JobID))
	}
}

// follow attaches a poller and an estimator to a queued job and blocks until the poller stops.
func (l *Launcher) follow(ctx context.Context, playlistID, jobID string) models.TransferJob {
	estCtx, stopEstimate := context.WithCancel(ctx)
	defer stopEstimate()

	estimator := NewEstimator(l.store, playlistID, l.opts)
	estimated := make(chan struct{})
	go func() {
		defer close(estimated)
		estimator.Run(estCtx)
	}()

	poller := NewPoller(l.api, l.store, l.token, playlistID, jobID, l.opts)
	poller.OnSignal(stopEstimate)
	job := poller.Run(ctx)

	stopEstimate()
	<-estimated
	return job
}

func (l *Launcher) fail(playlistID, msg string) models.TransferJob {
	job, _ := l.store.Merge(playlistID, models.JobUpdate{
		Status:  models.Ptr(models.StatusFailed),
		Message: &msg,
	})
	return job
}

// finish logs the terminal transition of job. Non-terminal jobs were interrupted and are skipped.
func (l *Launcher) finish(logger *log.Logger, job models.TransferJob) {
	switch job.Status {
	case models.StatusCompleted:
		logger.Info("transfer completed", "name", job.PlaylistName, "tracks", job.TotalTracks)
	case models.StatusFailed:
		logger.Warn("transfer failed", "name", job.PlaylistName, "reason", job.Message)
	}
}

func remoteStatus(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}
