package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/xferctl/internal/models"
)

// Estimator animates the progress of a job whose remote reports no counters.
type Estimator struct {
	store      *Store
	playlistID string
	interval   time.Duration
}

// NewEstimator creates an estimator for the record of playlistID.
func NewEstimator(store *Store, playlistID string, opts Options) *Estimator {
	opts = opts.withDefaults()
	return &Estimator{store: store, playlistID: playlistID, interval: opts.EstimateInterval}
}

// Run advances the estimate on every tick until ctx is done or there is nothing left to estimate.
func (e *Estimator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ctx.Err() != nil {
			return
		}
		if _, more := e.Advance(); !more {
			return
		}
	}
}

// Advance moves progress to the next multiple of ten, capped at [models.SyntheticCeiling].
// It reports false once the job is terminal, has real progress, or sits at the ceiling.
func (e *Estimator) Advance() (models.TransferJob, bool) {
	job, err := e.store.Apply(e.playlistID, func(cur models.TransferJob) *models.JobUpdate {
		if !estimable(cur) {
			return nil
		}
		next := min(models.SyntheticCeiling, (cur.ProgressPercent/10+1)*10)
		return &models.JobUpdate{
			ProgressPercent:   &next,
			SyntheticProgress: models.Ptr(true),
		}
	})
	if err != nil {
		return job, false
	}
	return job, estimable(job) && job.ProgressPercent < models.SyntheticCeiling
}

func estimable(j models.TransferJob) bool {
	return j.Status.InFlight() && !j.RealProgress
}
