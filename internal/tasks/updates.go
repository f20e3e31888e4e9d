package tasks

import (
	"fmt"

	"github.com/desertthunder/xferctl/internal/models"
)

// ProgressUpdate represents a change in a running batch.
//
// Used to send real-time updates to the CLI or HTTP view for display.
type ProgressUpdate struct {
	BatchID string             // Batch the update belongs to
	Phase   Phase              // Batch phase after the change
	Step    int                // Jobs that reached a terminal status
	Total   int                // Jobs in the batch
	Message string             // Human-readable message for display
	Job     models.TransferJob // Job that changed; zero for batch-level updates
	Summary Summary            // Aggregate recomputed after the change
}

// Phase is the lifecycle of a [Batch].
type Phase int

const (
	PhaseLaunching Phase = iota
	PhaseTransferring
	PhaseDone
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseLaunching:
		return "launching"
	case PhaseTransferring:
		return "transferring"
	case PhaseDone:
		return "done"
	case PhaseCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Active reports whether jobs of the batch may still change.
func (p Phase) Active() bool {
	return p == PhaseLaunching || p == PhaseTransferring
}

// phaseOf derives the phase of a batch that is still running from its jobs.
func phaseOf(jobs []models.TransferJob) Phase {
	for _, j := range jobs {
		if j.Status == models.StatusIdle || j.Status == models.StatusStarting {
			return PhaseLaunching
		}
	}
	return PhaseTransferring
}

func jobUpdate(batchID string, phase Phase, job models.TransferJob, s Summary) ProgressUpdate {
	msg := s.ActiveJobMessage
	switch job.Status {
	case models.StatusCompleted:
		msg = fmt.Sprintf("✓ %s", job.PlaylistName)
	case models.StatusFailed:
		msg = fmt.Sprintf("✗ %s: %s", job.PlaylistName, job.Message)
	}
	return ProgressUpdate{
		BatchID: batchID,
		Phase:   phase,
		Step:    s.CompletedCount + s.FailedCount,
		Total:   s.Total,
		Message: msg,
		Job:     job,
		Summary: s,
	}
}

func batchDoneUpdate(batchID string, phase Phase, s Summary) ProgressUpdate {
	msg := fmt.Sprintf("Transferred %d of %d playlists", s.CompletedCount, s.Total)
	if s.FailedCount > 0 {
		msg = fmt.Sprintf("%s (%d failed)", msg, s.FailedCount)
	}
	if phase == PhaseCancelled {
		msg = "Transfer cancelled"
	}
	return ProgressUpdate{
		BatchID: batchID,
		Phase:   phase,
		Step:    s.CompletedCount + s.FailedCount,
		Total:   s.Total,
		Message: msg,
		Summary: s,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
