package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var (
	jobIDKeys     = []string{"jobId", "job_id", "id"}
	totalKeys     = []string{"totalTracks", "total_tracks", "total", "tracksTotal", "trackTotal", "targetCount"}
	processedKeys = []string{"processedTracks", "processed_tracks", "processed", "completed", "completedTracks", "tracksProcessed", "current"}
	successKeys   = []string{"successfulTracks", "successful_tracks", "successCount"}
	failedKeys    = []string{"failedTracks", "failed_tracks", "failedCount"}
)

type object map[string]any

// UnmarshalJSON decodes a Start reply, accepting every job id spelling the remote uses.
func (r *StartResponse) UnmarshalJSON(data []byte) error {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}

	r.JobID = o.str(jobIDKeys...)
	if r.JobID == "" {
		if job, ok := o["job"].(map[string]any); ok {
			r.JobID = object(job).str("id", "jobId")
		}
	}
	r.Status = o.str("status")
	r.Message = o.str("message")
	r.Error = o.str("error")
	if total := o.count(totalKeys...); total != nil {
		r.TotalTracks = *total
	}
	return nil
}

// UnmarshalJSON decodes a Status reply.
func (r *StatusResponse) UnmarshalJSON(data []byte) error {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}

	r.Status = o.str("status")
	r.TotalTracks = o.count(totalKeys...)
	r.ProcessedTracks = o.count(processedKeys...)
	r.SuccessfulTracks = o.count(successKeys...)
	r.FailedTracks = o.count(failedKeys...)
	r.Progress = o.num("progress")
	r.Message = o.str("message")
	r.Stage = o.str("stage")
	r.Complete = o.flag("isComplete") || o.flag("finished")
	r.Failed = o.flag("failed") || o.flag("error")

	if r.Message == "" {
		// error may be a description rather than a flag
		r.Message = o.str("error")
	}

	if items, ok := o["failures"].([]any); ok {
		for _, item := range items {
			f, ok := item.(map[string]any)
			if !ok {
				continue
			}
			entry := object(f)
			r.Failures = append(r.Failures, TrackFailure{
				Title:  entry.str("title", "name", "track"),
				Artist: entry.str("artist"),
				Reason: entry.str("reason", "error"),
			})
		}
	}
	return nil
}

// str returns the first non-empty string among keys. Numbers are formatted.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		switch v := o[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// num returns the first numeric value among keys. Numeric strings are accepted.
func (o object) num(keys ...string) *float64 {
	for _, k := range keys {
		switch v := o[k].(type) {
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return &v
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func (o object) count(keys ...string) *int {
	f := o.num(keys...)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func (o object) flag(key string) bool {
	b, ok := o[key].(bool)
	return ok && b
}
