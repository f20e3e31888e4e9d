package models

import (
	"fmt"
	"strings"
)

// JobStatus is the lifecycle state of a [TransferJob].
type JobStatus int

const (
	StatusIdle JobStatus = iota
	StatusStarting
	StatusQueued
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusQueued:
		return "queued"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// IsTerminal reports whether s is Completed or Failed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InFlight reports whether s is Queued or Processing.
func (s JobStatus) InFlight() bool {
	return s == StatusQueued || s == StatusProcessing
}

// stage groups statuses whose order matters: Queued and Processing share a stage.
func (s JobStatus) stage() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusStarting:
		return 1
	case StatusQueued, StatusProcessing:
		return 2
	default:
		return 3
	}
}

// CanTransition reports whether a job in s may move to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next.stage() >= s.stage()
}

// MarshalText encodes the status by name.
func (s JobStatus) MarshalText() ([]byte, error) {
	name := s.String()
	if name == "" {
		return nil, fmt.Errorf("unknown job status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a status name.
func (s *JobStatus) UnmarshalText(b []byte) error {
	parsed, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown job status %q", string(b))
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name produced by [JobStatus.String].
func ParseStatus(name string) (JobStatus, bool) {
	for s := StatusIdle; s <= StatusFailed; s++ {
		if strings.EqualFold(name, s.String()) {
			return s, true
		}
	}
	return StatusIdle, false
}
