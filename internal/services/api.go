// Resty-backed client for the remote transfer API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/xferctl/internal/shared"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://matchmytunes.onrender.com"
	startPath      = "/api/transfer"
	statusPath     = "/api/transfer/{jobId}/status"
)

// TransferService implements [TransferAPI] over HTTP.
type TransferService struct {
	baseURL string
	http    *resty.Client
}

// NewTransferService creates a client for the API at baseURL.
//
// A nil httpClient uses a fresh [http.Client]; timeout <= 0 defaults to 20 seconds.
func NewTransferService(baseURL string, timeout time.Duration, httpClient *http.Client) *TransferService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &TransferService{baseURL: baseURL, http: c}
}

// BaseURL returns the API root this client talks to.
func (s *TransferService) BaseURL() string {
	return s.baseURL
}

// StartTransfer posts req to the Transfer Start endpoint.
func (s *TransferService) StartTransfer(ctx context.Context, token string, req StartRequest) (*StartResponse, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(startPath)
	if err != nil {
		return nil, fmt.Errorf("%w: start transfer: %v", shared.ErrTransport, err)
	}

	out := &StartResponse{}
	if body := resp.Body(); len(body) > 0 {
		// a non-JSON body is tolerated; only the status code matters then
		_ = json.Unmarshal(body, out)
	}
	out.StatusCode = resp.StatusCode()
	out.OK = resp.IsSuccess()
	return out, nil
}

// TransferStatus fetches the state of jobID. Any non-2xx reply is a transport error.
func (s *TransferService) TransferStatus(ctx context.Context, token, jobID string) (*StatusResponse, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("jobId", jobID).
		Get(statusPath)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer status: %v", shared.ErrTransport, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: transfer status: HTTP %d", shared.ErrTransport, resp.StatusCode())
	}

	out := &StatusResponse{}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode status: %v", shared.ErrTransport, err)
	}
	return out, nil
}
