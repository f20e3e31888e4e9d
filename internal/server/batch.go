package server

import (
	"net/http"
	"time"

	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/shared"
	"github.com/desertthunder/xferctl/internal/tasks"
	"github.com/gorilla/mux"
)

// BatchSource yields the batch to report on. [tasks.Orchestrator] satisfies it.
type BatchSource interface {
	Current() *tasks.Batch
}

// BatchView is the JSON body of GET /batch.
type BatchView struct {
	BatchID   string               `json:"batchId"`
	Phase     tasks.Phase          `json:"phase"`
	Active    bool                 `json:"active"` // jobs may still change
	StartedAt time.Time            `json:"startedAt"`
	Summary   tasks.Summary        `json:"summary"`
	Jobs      []models.TransferJob `json:"jobs"`
}

// BatchHandler serves the current batch as JSON.
type BatchHandler struct {
	source BatchSource
}

// NewBatchHandler creates a handler reading from source.
func NewBatchHandler(source BatchSource) *BatchHandler {
	return &BatchHandler{source: source}
}

// Routes returns the HTTP routes this handler serves.
func (h *BatchHandler) Routes() []string {
	return []string{"/batch", "/batch/jobs/{playlistID}"}
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b := h.source.Current()
	if b == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no batch has been launched"})
		return
	}

	if id, ok := mux.Vars(r)["playlistID"]; ok {
		job, found := b.Job(id)
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown playlist " + id})
			return
		}
		writeJSON(w, http.StatusOK, job)
		return
	}

	jobs := b.Jobs()
	phase := b.Phase()
	writeJSON(w, http.StatusOK, BatchView{
		BatchID:   b.ID(),
		Phase:     phase,
		Active:    phase.Active(),
		StartedAt: b.StartedAt(),
		Summary:   tasks.Aggregate(jobs),
		Jobs:      jobs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
