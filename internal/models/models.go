package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrJobTerminal        = errors.New("job already reached a terminal status")
	ErrStatusRegression   = errors.New("status cannot move backwards")
	ErrSyntheticAfterReal = errors.New("synthetic progress after a real progress signal")
)

// SyntheticCeiling is the highest percentage estimated progress may show.
const SyntheticCeiling = 90

// PlaylistRef identifies a playlist selected for transfer.
type PlaylistRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DisplayName returns the playlist name, or a placeholder built from the id.
func (p PlaylistRef) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Playlist %s", p.ID)
}

// TrackFailure is a track the remote could not transfer.
type TrackFailure struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Reason string `json:"reason"`
}

// TransferJob tracks one source → destination playlist transfer.
type TransferJob struct {
	PlaylistID          string         `json:"playlistId"`
	JobID               string         `json:"jobId,omitempty"`
	PlaylistName        string         `json:"playlistName"`
	Status              JobStatus      `json:"status"`
	RemoteStatus        string         `json:"remoteStatus,omitempty"`
	ProgressPercent     int            `json:"progressPercent"`
	ProcessedTracks     int            `json:"processedTracks"`
	TotalTracks         int            `json:"totalTracks"`
	SucceededTracks     int            `json:"succeededTracks"`
	FailedTracks        int            `json:"failedTracks"`
	Message             string         `json:"message"`
	SyntheticProgress   bool           `json:"syntheticProgress"`
	RealProgress        bool           `json:"realProgress"` // set once the remote reported any progress
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	Failures            []TrackFailure `json:"failures,omitempty"`
	LastUpdatedAt       time.Time      `json:"lastUpdatedAt"`
}

// NewTransferJob returns an Idle job for the playlist.
func NewTransferJob(p PlaylistRef, now time.Time) TransferJob {
	return TransferJob{
		PlaylistID:    p.ID,
		PlaylistName:  p.DisplayName(),
		Status:        StatusIdle,
		LastUpdatedAt: now,
	}
}

// IsTerminal reports whether the job is Completed or Failed.
func (j TransferJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// JobUpdate is a partial update; nil fields are not touched.
type JobUpdate struct {
	JobID               *string
	PlaylistName        *string
	Status              *JobStatus
	RemoteStatus        *string
	ProgressPercent     *int
	ProcessedTracks     *int
	TotalTracks         *int
	SucceededTracks     *int
	FailedTracks        *int
	Message             *string
	SyntheticProgress   *bool
	ConsecutiveFailures *int
	Failures            []TrackFailure
	RealSignal          bool // the remote reported progress, even if it rounds to 0%
}

// Ptr returns a pointer to v. Handy for building a [JobUpdate].
func Ptr[T any](v T) *T {
	return &v
}

// HasRealSignal reports whether u carries remote-confirmed progress.
func (u JobUpdate) HasRealSignal() bool {
	if u.RealSignal {
		return true
	}
	if u.SyntheticProgress == nil || *u.SyntheticProgress {
		return false
	}
	return positive(u.TotalTracks) || positive(u.ProcessedTracks) || positive(u.ProgressPercent)
}

func positive(v *int) bool {
	return v != nil && *v > 0
}

// Merge applies u to j and returns the new record. j itself is not modified.
func (j TransferJob) Merge(u JobUpdate, now time.Time) (TransferJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	if u.Status != nil && !j.Status.CanTransition(*u.Status) {
		return j, fmt.Errorf("%w: %s → %s", ErrStatusRegression, j.Status, *u.Status)
	}
	if u.SyntheticProgress != nil && *u.SyntheticProgress && j.RealProgress {
		return j, ErrSyntheticAfterReal
	}

	next := j
	if u.JobID != nil {
		next.JobID = *u.JobID
	}
	if u.PlaylistName != nil && *u.PlaylistName != "" {
		next.PlaylistName = *u.PlaylistName
	}
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.RemoteStatus != nil {
		next.RemoteStatus = *u.RemoteStatus
	}
	if u.ProgressPercent != nil {
		next.ProgressPercent = clamp(*u.ProgressPercent, 0, 100)
	}
	if u.ProcessedTracks != nil {
		next.ProcessedTracks = max(*u.ProcessedTracks, 0)
	}
	if u.TotalTracks != nil {
		next.TotalTracks = max(*u.TotalTracks, 0)
	}
	if u.SucceededTracks != nil {
		next.SucceededTracks = max(*u.SucceededTracks, 0)
	}
	if u.FailedTracks != nil {
		next.FailedTracks = max(*u.FailedTracks, 0)
	}
	if u.Message != nil {
		next.Message = *u.Message
	}
	if u.SyntheticProgress != nil {
		next.SyntheticProgress = *u.SyntheticProgress
	}
	if u.ConsecutiveFailures != nil {
		next.ConsecutiveFailures = *u.ConsecutiveFailures
	}
	if u.Failures != nil {
		next.Failures = append([]TrackFailure(nil), u.Failures...)
	}
	if u.HasRealSignal() {
		next.RealProgress = true
	}

	if next.IsTerminal() {
		next.SyntheticProgress = false
		if next.Status == StatusCompleted {
			next.ProgressPercent = 100
		}
		if next.Status == StatusFailed && next.Message == "" {
			next.Message = "Transfer failed"
		}
	} else if next.SyntheticProgress && next.ProgressPercent > SyntheticCeiling {
		next.ProgressPercent = SyntheticCeiling
	}

	next.LastUpdatedAt = now
	return next, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
