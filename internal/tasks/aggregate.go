package tasks

import (
	"fmt"
	"math"

	"github.com/desertthunder/xferctl/internal/models"
)

// Summary is the batch-wide view of a job list.
type Summary struct {
	OverallPercent   int    `json:"overallPercent"`
	CompletedCount   int    `json:"completedCount"`
	FailedCount      int    `json:"failedCount"`
	Total            int    `json:"total"`
	ActiveJobMessage string `json:"activeJobMessage"`
}

// Aggregate computes a [Summary] from scratch. Completed jobs count as 100
// whatever their stored progress.
func Aggregate(jobs []models.TransferJob) Summary {
	s := Summary{Total: len(jobs)}
	if len(jobs) == 0 {
		return s
	}

	sum := 0
	var active *models.TransferJob
	for i := range jobs {
		j := &jobs[i]
		switch j.Status {
		case models.StatusCompleted:
			s.CompletedCount++
			sum += 100
			continue
		case models.StatusFailed:
			s.FailedCount++
		default:
			if active == nil {
				active = j
			}
		}
		sum += min(max(j.ProgressPercent, 0), 100)
	}

	mean := math.Round(float64(sum) / float64(len(jobs)))
	s.OverallPercent = min(max(int(mean), 0), 100)
	if active != nil {
		s.ActiveJobMessage = activeMessage(*active)
	}
	return s
}

func activeMessage(j models.TransferJob) string {
	switch {
	case j.TotalTracks > 0:
		return fmt.Sprintf("%s: %d/%d tracks", j.PlaylistName, j.ProcessedTracks, j.TotalTracks)
	case j.Message != "":
		return j.Message
	default:
		return fmt.Sprintf("Processing %s...", j.PlaylistName)
	}
}
