package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
)

// scheduledName appends the run date to the base playlist name.
func scheduledName(base string, t time.Time) string {
	return fmt.Sprintf("%s %s", base, t.Format("2006-01-02"))
}

// fillJob creates one dated random-fill playlist per call.
func (r *Runner) fillJob(ctx context.Context, engine *tasks.RecallEngine, req tasks.FillRequest) func() {
	base := req.Name
	return func() {
		req.Name = scheduledName(base, time.Now())
		logger := shared.WithLogger(r.logger, "playlist", req.Name)
		logger.Info("scheduled fill started")

		res := engine.FillPlaylist(ctx, req, nil)
		if !res.Success() {
			logger.Error(res.Message, "err", res.Err)
			return
		}
		logger.Info(res.Message, "id", res.Data.Playlist.ID, "run", res.Data.RunID)
	}
}

// Schedule creates a random-fill playlist every time --cron fires, until interrupted.
func (r *Runner) Schedule(ctx context.Context, cmd *cli.Command) error {
	spec := cmd.String("cron")
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w: cron %q: %w", shared.ErrInvalidFlag, spec, err)
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	runner := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(r.logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(r.logger)),
	))
	runner.Schedule(sched, cron.FuncJob(r.fillJob(ctx, engine, tasks.FillRequest{
		Name:        cmd.String("name"),
		Description: "Random fill from discover",
		Public:      cmd.Bool("public"),
		RandomFill:  true,
		NumTracks:   r.fillSize(cmd),
	})))

	runner.Start()
	r.logger.Info("schedule started", "cron", spec, "next", sched.Next(time.Now()).Format(time.RFC1123))

	<-ctx.Done()
	stopped := runner.Stop()
	<-stopped.Done()
	r.logger.Info("schedule stopped")
	return nil
}
