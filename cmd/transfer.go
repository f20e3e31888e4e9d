package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/desertthunder/xferctl/internal/formatter"
	"github.com/desertthunder/xferctl/internal/models"
	"github.com/desertthunder/xferctl/internal/server"
	"github.com/desertthunder/xferctl/internal/shared"
	"github.com/desertthunder/xferctl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TransferRun launches a batch and blocks until every job is terminal or the run is interrupted.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	playlists, err := parsePlaylists(cmd.StringSlice("playlist"))
	if err != nil {
		return err
	}

	sessions, err := r.Sessions()
	if err != nil {
		return err
	}

	opts := tasks.OptionsFromConfig(r.config.Transfer, r.logger)
	if cmd.IsSet("concurrency") {
		n := int(cmd.Int("concurrency"))
		if n < 1 {
			return fmt.Errorf("%w: --concurrency must be at least 1", shared.ErrInvalidArgument)
		}
		opts.Concurrency = n
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	orchestrator := tasks.NewOrchestrator(r.API(), sessions, opts)
	defer orchestrator.Close()

	if cmd.Bool("listen") {
		router := server.NewBasicRouter()
		router.Use(server.RequestLogger(r.logger))
		router.Handler(server.NewBatchHandler(orchestrator))

		srv := server.New(r.config.Server.Addr(), router, r.logger)
		errs := srv.Start()
		defer srv.Shutdown()
		go func() {
			if err := <-errs; err != nil {
				r.logger.Error("status server stopped", "error", err)
			}
		}()
	}

	jsonOut := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		r.printProgress(progressCh, !jsonOut)
	}()

	batch, err := orchestrator.Launch(ctx, tasks.LaunchRequest{
		SourceProvider:      cmd.String("from"),
		DestinationProvider: cmd.String("to"),
		Playlists:           playlists,
	}, progressCh)
	if err != nil {
		close(progressCh)
		<-printed
		return err
	}

	summary := batch.Wait()
	close(progressCh)
	<-printed

	jobs := batch.Jobs()
	if jsonOut {
		data, err := formatter.SummaryJSON(batch.ID(), summary, jobs)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		r.writePlain("\n")
		r.writePlainHeader("Transfer Summary")
		if err := formatter.WriteSummary(r.output, summary, jobs); err != nil {
			return err
		}
	}

	if path := cmd.String("failures-csv"); path != "" {
		n, err := formatter.WriteFailuresCSV(jobs, path)
		if err != nil {
			return err
		}
		if n > 0 {
			r.logger.Info("failed tracks exported", "path", path, "rows", n)
		} else {
			r.logger.Info("no failed tracks to export")
		}
	}

	if batch.Phase() == tasks.PhaseCancelled {
		return fmt.Errorf("transfer interrupted: %w", context.Canceled)
	}
	if summary.FailedCount > 0 {
		return fmt.Errorf("%w: %d of %d playlists failed", shared.ErrRemoteJob, summary.FailedCount, summary.Total)
	}
	return nil
}

// printProgress writes batch messages, terminal job messages and status changes until progress is closed.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, show bool) {
	seen := map[string]models.JobStatus{}
	for update := range progress {
		if !show {
			continue
		}

		id := update.Job.PlaylistID
		if id == "" {
			r.writePlain("%s\n", update.Message)
			continue
		}

		prev, ok := seen[id]
		seen[id] = update.Job.Status
		if ok && prev == update.Job.Status && !update.Job.IsTerminal() {
			continue
		}

		switch {
		case update.Job.IsTerminal():
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		default:
			r.writePlain("   %s: %s\n", update.Job.PlaylistName, update.Job.Message)
		}
	}
}

// parsePlaylists reads `id` or `id=name` values.
func parsePlaylists(values []string) ([]models.PlaylistRef, error) {
	if len(values) == 0 {
		return nil, shared.ErrEmptyBatch
	}

	refs := make([]models.PlaylistRef, 0, len(values))
	for _, v := range values {
		id, name, _ := strings.Cut(v, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: %q has no id", shared.ErrInvalidPlaylist, v)
		}
		refs = append(refs, models.PlaylistRef{ID: id, Name: strings.TrimSpace(name)})
	}
	return refs, nil
}

func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer playlists between services",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Transfer one or more playlists and follow them to completion",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Source service (spotify or youtube)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Destination service (spotify or youtube)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Playlist to transfer as id or id=name; repeatable",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Playlists transferred at once (overrides [transfer] concurrency)",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "failures-csv",
						Usage: "Write tracks that could not be matched to this CSV file",
					},
					&cli.BoolFlag{
						Name:  "listen",
						Usage: "Serve the batch as JSON on the [server] address while it runs",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the final summary as JSON",
					},
				},
				Action: r.TransferRun,
			},
		},
	}
}
