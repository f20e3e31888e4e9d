// Package models defines the records tracked while a batch of playlist transfers runs.
//
// One [TransferJob] exists per selected playlist. Its lifecycle is
//
//	Idle → Starting → {Queued ↔ Processing} → {Completed | Failed}
//
// and it is only ever changed through a [JobUpdate], a field-level partial merge
// in which nil fields are left untouched. [TransferJob.Merge] enforces the
// record invariants:
//   - a terminal job accepts no further updates
//   - status never moves backwards along the lifecycle
//   - once a real progress signal has arrived, synthetic progress cannot return
//   - progress stays within [0, 100] and synthetic progress never exceeds 90
package models
