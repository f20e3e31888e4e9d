// Package tasks runs batches of playlist transfers against the remote transfer API.
//
// # Batch Lifecycle
//
// An [Orchestrator] validates a [LaunchRequest], seeds one record per playlist in a
// [Store] and hands the batch to a [Launcher]. For each playlist the launcher:
//
//  1. Fails pseudo-playlists (favorite collections) without calling the remote
//  2. Marks the job Starting and calls Transfer Start
//  3. Fails the job on a rejected start, or completes it when the remote finished synchronously
//  4. Otherwise queues the job and attaches a [Poller] and an [Estimator]
//
// Playlists run one after another unless [Options.Concurrency] allows a worker pool.
//
// # Job Records
//
// The [Store] is the only shared state. Writers submit partial [models.JobUpdate]
// merges; the store serializes them and rejects anything that would move a job
// backwards, touch a terminal job, or bring back synthetic progress after the
// remote reported real numbers.
//
// # Polling and Estimation
//
// The [Poller] fetches remote status immediately and then on every tick. Transport
// errors are tolerated up to [Options.MaxConsecutiveFailures] in a row. The
// [Estimator] moves progress up by ten every tick, capped at 90, until real
// progress arrives or the job ends.
//
// # Progress Reporting
//
// Every committed change produces a [ProgressUpdate] carrying the job and a fresh
// [Summary] from [Aggregate]. Updates use select with default to prevent blocking.
package tasks
