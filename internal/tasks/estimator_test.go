package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/desertthunder/xferctl/internal/models"
)

func TestEstimator(t *testing.T) {
	t.Run("Advances By Ten Up To The Ceiling", func(t *testing.T) {
		store := queuedStore(t)
		est := NewEstimator(store, "p1", fastOptions())

		for want := 10; want <= models.SyntheticCeiling; want += 10 {
			job, more := est.Advance()
			if job.ProgressPercent != want {
				t.Fatalf("expected %d, got %d", want, job.ProgressPercent)
			}
			if !job.SyntheticProgress {
				t.Fatalf("expected synthetic progress at %d", want)
			}
			if more != (want < models.SyntheticCeiling) {
				t.Fatalf("at %d: expected more=%v", want, want < models.SyntheticCeiling)
			}
		}

		job, more := est.Advance()
		if more || job.ProgressPercent != models.SyntheticCeiling {
			t.Errorf("expected to stay at the ceiling, got %d more=%v", job.ProgressPercent, more)
		}
	})

	t.Run("Rounds Up To The Next Multiple", func(t *testing.T) {
		store := queuedStore(t)
		if _, err := store.Merge("p1", models.JobUpdate{ProgressPercent: models.Ptr(34), SyntheticProgress: models.Ptr(true)}); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		job, _ := NewEstimator(store, "p1", fastOptions()).Advance()
		if job.ProgressPercent != 40 {
			t.Errorf("expected 40, got %d", job.ProgressPercent)
		}
	})

	tests := []struct {
		name   string
		update models.JobUpdate
	}{
		{
			name:   "Stops After Real Progress",
			update: models.JobUpdate{TotalTracks: models.Ptr(12), ProgressPercent: models.Ptr(5), SyntheticProgress: models.Ptr(false)},
		},
		{
			name:   "Stops On Terminal Status",
			update: models.JobUpdate{Status: models.Ptr(models.StatusFailed), Message: models.Ptr("boom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := queuedStore(t)
			before, err := store.Merge("p1", tt.update)
			if err != nil {
				t.Fatalf("merge failed: %v", err)
			}

			job, more := NewEstimator(store, "p1", fastOptions()).Advance()
			if more {
				t.Error("expected estimator to stop")
			}
			if job.ProgressPercent != before.ProgressPercent || job.SyntheticProgress {
				t.Errorf("expected untouched job, got %+v", job)
			}
		})
	}

	t.Run("Ignores Jobs Not In Flight", func(t *testing.T) {
		store := NewStore(nil)
		if err := store.Seed([]models.PlaylistRef{{ID: "p1"}}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		job, more := NewEstimator(store, "p1", fastOptions()).Advance()
		if more || job.ProgressPercent != 0 {
			t.Errorf("expected idle job untouched, got %d more=%v", job.ProgressPercent, more)
		}
	})

	t.Run("Run Stops At The Ceiling", func(t *testing.T) {
		store := queuedStore(t)
		est := NewEstimator(store, "p1", fastOptions())

		done := make(chan struct{})
		go func() {
			defer close(done)
			est.Run(context.Background())
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("estimator did not stop")
		}
		if job, _ := store.Get("p1"); job.ProgressPercent != models.SyntheticCeiling {
			t.Errorf("expected %d, got %d", models.SyntheticCeiling, job.ProgressPercent)
		}
	})

	t.Run("Run Stops On Cancel", func(t *testing.T) {
		store := queuedStore(t)
		opts := fastOptions()
		opts.EstimateInterval = time.Hour
		est := NewEstimator(store, "p1", opts)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			est.Run(ctx)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("estimator ignored cancellation")
		}
		if job, _ := store.Get("p1"); job.ProgressPercent != 0 {
			t.Errorf("expected no progress, got %d", job.ProgressPercent)
		}
	})
}
