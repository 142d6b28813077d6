package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/batch"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/tuner"
)

// Loader supplies fresh history and the player list for each scheduled run.
type Loader func() (games []model.GameContext, players []string, err error)

// Scheduler re-tunes the roster on a cron schedule.
type Scheduler struct {
	Cron   *cron.Cron
	Runner *batch.Runner
	Load   Loader
	Opts   tuner.Options
	Prefix string
	Ctx    context.Context

	log *logrus.Entry
	now func() time.Time
}

// New creates a scheduler whose specs include a seconds field.
func New(ctx context.Context, runner *batch.Runner, load Loader, opts tuner.Options, prefix string) *Scheduler {
	if prefix == "" {
		prefix = "retune"
	}
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: runner,
		Load:   load,
		Opts:   opts,
		Prefix: prefix,
		Ctx:    ctx,
		log:    logger.WithComponent("scheduler"),
		now:    time.Now,
	}
}

// Register adds the re-tune job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.retune); err != nil {
		return fmt.Errorf("register retune task: %w", err)
	}
	s.log.WithField("cron", spec).Info("retune scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the re-tune immediately.
func (s *Scheduler) RunNow() (*batch.Summary, error) {
	return s.run()
}

// BatchID names the day's batch, so re-runs on the same day resume it.
func BatchID(prefix string, t time.Time) string {
	return prefix + "-" + t.Format("2006-01-02")
}

func (s *Scheduler) retune() {
	if _, err := s.run(); err != nil {
		s.log.WithError(err).Error("scheduled retune failed")
	}
}

func (s *Scheduler) run() (*batch.Summary, error) {
	id := BatchID(s.Prefix, s.now())
	log := s.log.WithField("batch", id)
	log.Info("running retune")

	games, players, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	players, err = tuner.ResolvePlayers(games, players, s.Opts.Player)
	if err != nil {
		return nil, err
	}
	sum, err := s.Runner.Run(s.Ctx, id, games, players, s.Opts)
	if err != nil {
		return sum, err
	}
	log.WithFields(logrus.Fields{"done": sum.Done, "failed": sum.Failed}).Info("retune finished")
	return sum, nil
}
