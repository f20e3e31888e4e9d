// package formatter renders batch results as failed-track CSV files and plain text summaries
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/shared"
	"github.com/desertthunder/xferctl/internal/tasks"
)

var failureHeaders = []string{"Playlist", "Track", "Artist", "Reason"}

// FailuresToCSV lists every failed track of jobs with columns: Playlist, Track, Artist, Reason
func FailuresToCSV(jobs []models.TransferJob) ([]byte, int, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(failureHeaders); err != nil {
		return nil, 0, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	rows := 0
	for _, job := range jobs {
		for _, f := range job.Failures {
			record := []string{job.PlaylistName, f.Title, f.Artist, f.Reason}
			if err := writer.Write(record); err != nil {
				return nil, rows, fmt.Errorf("failed to write CSV record: %w", err)
			}
			rows++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, rows, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), rows, nil
}

// WriteFailuresCSV writes the failed tracks of jobs to path and returns the number of rows.
//
// No file is created when there are no failed tracks.
func WriteFailuresCSV(jobs []models.TransferJob, path string) (int, error) {
	data, rows, err := FailuresToCSV(jobs)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write CSV file: %w", err)
	}
	return rows, nil
}

// WriteSummary prints one line per job followed by the batch totals.
func WriteSummary(w io.Writer, s tasks.Summary, jobs []models.TransferJob) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "PLAYLIST\tSTATUS\tPROGRESS\tTRACKS\tMESSAGE")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n", j.PlaylistName, j.Status, j.ProgressPercent, tracks(j), j.Message)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	_, err := fmt.Fprintf(w, "\n%d%% overall · %d completed · %d failed · %d total\n",
		s.OverallPercent, s.CompletedCount, s.FailedCount, s.Total)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// SummaryJSON encodes the summary and jobs for machine consumption.
func SummaryJSON(batchID string, s tasks.Summary, jobs []models.TransferJob) ([]byte, error) {
	return shared.MarshalJSON(struct {
		BatchID string               `json:"batchId"`
		Summary tasks.Summary        `json:"summary"`
		Jobs    []models.TransferJob `json:"jobs"`
	}{batchID, s, jobs}, true)
}

func tracks(j models.TransferJob) string {
	if j.TotalTracks == 0 {
		return "-"
	}
	if j.FailedTracks > 0 {
		return fmt.Sprintf("%d/%d (%d failed)", j.ProcessedTracks, j.TotalTracks, j.FailedTracks)
	}
	return fmt.Sprintf("%d/%d", j.ProcessedTracks, j.TotalTracks)
}
