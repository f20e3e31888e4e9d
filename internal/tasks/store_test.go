package tasks

import (
	"errors"
	"testing"

	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/shared"
)

func TestStore(t *testing.T) {
	t.Run("Seed", func(t *testing.T) {
		t.Run("Keeps Submission Order", func(t *testing.T) {
			store := NewStore(nil)
			err := store.Seed([]models.PlaylistRef{{ID: "b", Name: "Bee"}, {ID: "a"}, {ID: "c", Name: "Sea"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			jobs := store.Jobs()
			if len(jobs) != 3 {
				t.Fatalf("expected 3 jobs, got %d", len(jobs))
			}
			for i, id := range []string{"b", "a", "c"} {
				if jobs[i].PlaylistID != id {
					t.Errorf("job %d: expected %s, got %s", i, id, jobs[i].PlaylistID)
				}
				if jobs[i].Status != models.StatusIdle {
					t.Errorf("job %d: expected idle, got %s", i, jobs[i].Status)
				}
			}
			if jobs[1].PlaylistName != "Playlist a" {
				t.Errorf("expected placeholder name, got %q", jobs[1].PlaylistName)
			}
		})

		tests := []struct {
			name      string
			playlists []models.PlaylistRef
		}{
			{name: "Empty ID", playlists: []models.PlaylistRef{{ID: "a"}, {ID: ""}}},
			{name: "Duplicate ID", playlists: []models.PlaylistRef{{ID: "a"}, {ID: "b"}, {ID: "a"}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := NewStore(nil)
				err := store.Seed(tt.playlists)
				if !errors.Is(err, shared.ErrInvalidPlaylist) {
					t.Errorf("expected ErrInvalidPlaylist, got %v", err)
				}
				if !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected a validation error, got %v", err)
				}
				if n := len(store.Jobs()); n != 0 {
					t.Errorf("expected no jobs, got %d", n)
				}
			})
		}
	})

	t.Run("Merge", func(t *testing.T) {
		t.Run("Unknown Job", func(t *testing.T) {
			store := NewStore(nil)
			_, err := store.Merge("nope", models.JobUpdate{Status: models.Ptr(models.StatusStarting)})
			if !errors.Is(err, ErrUnknownJob) {
				t.Errorf("expected ErrUnknownJob, got %v", err)
			}
		})

		t.Run("Terminal Jobs Are Immutable", func(t *testing.T) {
			store := queuedStore(t)
			if _, err := store.Merge("p1", models.JobUpdate{Status: models.Ptr(models.StatusCompleted)}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err := store.Merge("p1", models.JobUpdate{Message: models.Ptr("late")})
			if !errors.Is(err, models.ErrJobTerminal) {
				t.Errorf("expected ErrJobTerminal, got %v", err)
			}
			if got, _ := store.Get("p1"); got.Message == "late" {
				t.Error("terminal job was modified")
			}
		})

		t.Run("Synthetic After Real Is Rejected", func(t *testing.T) {
			store := queuedStore(t)
			_, err := store.Merge("p1", models.JobUpdate{
				TotalTracks:       models.Ptr(10),
				ProgressPercent:   models.Ptr(20),
				SyntheticProgress: models.Ptr(false),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = store.Merge("p1", models.JobUpdate{ProgressPercent: models.Ptr(30), SyntheticProgress: models.Ptr(true)})
			if !errors.Is(err, models.ErrSyntheticAfterReal) {
				t.Errorf("expected ErrSyntheticAfterReal, got %v", err)
			}
			got, _ := store.Get("p1")
			if got.SyntheticProgress || got.ProgressPercent != 20 {
				t.Errorf("expected real progress 20, got %+v", got)
			}
		})

		t.Run("Nil Update Is A No-op", func(t *testing.T) {
			store := queuedStore(t)
			calls := 0
			store.OnChange(func(models.TransferJob, []models.TransferJob) { calls++ })

			if _, err := store.Apply("p1", func(models.TransferJob) *models.JobUpdate { return nil }); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != 0 {
				t.Errorf("expected no change notification, got %d", calls)
			}
		})

		t.Run("Notifies With Snapshot", func(t *testing.T) {
			store := NewStore(nil)
			if err := store.Seed([]models.PlaylistRef{{ID: "a"}, {ID: "b"}}); err != nil {
				t.Fatalf("seed failed: %v", err)
			}

			var gotJob models.TransferJob
			var gotJobs []models.TransferJob
			store.OnChange(func(job models.TransferJob, jobs []models.TransferJob) {
				gotJob, gotJobs = job, jobs
			})

			if _, err := store.Merge("b", models.JobUpdate{Status: models.Ptr(models.StatusStarting)}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotJob.PlaylistID != "b" || gotJob.Status != models.StatusStarting {
				t.Errorf("unexpected job %+v", gotJob)
			}
			if len(gotJobs) != 2 || gotJobs[1].Status != models.StatusStarting {
				t.Errorf("unexpected snapshot %+v", gotJobs)
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		store := queuedStore(t)
		store.Close()

		if !store.Closed() {
			t.Error("expected store to report closed")
		}
		_, err := store.Merge("p1", models.JobUpdate{Status: models.Ptr(models.StatusProcessing)})
		if !errors.Is(err, ErrStoreClosed) {
			t.Errorf("expected ErrStoreClosed, got %v", err)
		}
		if err := store.Seed([]models.PlaylistRef{{ID: "x"}}); !errors.Is(err, ErrStoreClosed) {
			t.Errorf("expected ErrStoreClosed on seed, got %v", err)
		}
		if got, _ := store.Get("p1"); got.Status != models.StatusQueued {
			t.Errorf("expected queued, got %s", got.Status)
		}
	})
}
