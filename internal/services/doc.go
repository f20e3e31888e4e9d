// Package services implements the client side of the remote transfer API.
//
// # Operations
//
// [TransferAPI] exposes the two calls the orchestrator depends on:
//   - [TransferAPI.StartTransfer] : POST /api/transfer with a [StartRequest]
//   - [TransferAPI.TransferStatus] : GET /api/transfer/{jobId}/status
//
// [TransferService] implements both over HTTP with a resty client. Every request
// carries the session's bearer token.
//
// # Response Decoding
//
// The remote API is loose about field names, so responses are decoded
// field-by-field from a generic JSON object. A Start response may name the job
// id jobId, job_id, id or nest it under job; a status response may report its
// track counters under several spellings (totalTracks, total_tracks, total, ...).
// Missing counters stay nil so callers can tell "unknown" from zero.
//
// # Error Handling
//
// Transport failures, non-2xx status polls and undecodable status bodies wrap
// [shared.ErrTransport]. A non-2xx Start response is not an error: the caller
// gets a [StartResponse] with OK=false and the server's message, since the
// remote rejecting a playlist is a per-job outcome.
package services
