// package services defines interface TransferAPI for the remote playlist transfer service
package services

import (
	"context"
)

// TransferAPI starts remote playlist transfers and reports their progress.
type TransferAPI interface {
	// StartTransfer asks the remote to copy one playlist. The returned error is transport-level only;
	// a rejected request comes back as a response with OK=false.
	StartTransfer(ctx context.Context, token string, req StartRequest) (*StartResponse, error)

	// TransferStatus fetches the current state of a remote job.
	TransferStatus(ctx context.Context, token, jobID string) (*StatusResponse, error)
}

// StartRequest is the Transfer Start payload.
type StartRequest struct {
	SourceProvider      string `json:"sourceProvider"`
	DestinationProvider string `json:"destinationProvider"`
	SourcePlaylistID    string `json:"sourcePlaylistId"`
	NewPlaylistName     string `json:"newPlaylistName"`
}

// StartResponse is the decoded Transfer Start reply.
//
// An empty JobID on a successful response means the remote finished synchronously.
type StartResponse struct {
	OK          bool
	StatusCode  int
	JobID       string
	Status      string
	Message     string
	Error       string
	TotalTracks int
}

// Reason returns the server supplied failure reason, if any.
func (r *StartResponse) Reason() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// TrackFailure is one entry of a status response's failures list.
type TrackFailure struct {
	Title  string
	Artist string
	Reason string
}

// StatusResponse is the decoded Transfer Status reply. Nil pointers mean the field was absent.
type StatusResponse struct {
	Status           string
	TotalTracks      *int
	ProcessedTracks  *int
	SuccessfulTracks *int
	FailedTracks     *int
	Progress         *float64 // 0..1 fraction or 0..100 percentage
	Message          string
	Stage            string
	Failures         []TrackFailure
	Complete         bool // isComplete / finished flags
	Failed           bool // failed / error flags
}
