package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/tuner"
)

// Summary describes one invocation of a batch.
type Summary struct {
	Batch    string               `json:"batch"`
	RunID    string               `json:"run_id"`
	Enqueued int                  `json:"enqueued"`
	Resumed  int                  `json:"resumed"`
	Done     int                  `json:"done"`
	Failed   int                  `json:"failed"`
	Saved    int                  `json:"saved"`
	Players  []tuner.PlayerReport `json:"players"`
	Duration time.Duration        `json:"duration_ns"`
}

// Runner works through a batch's tasks, checkpointing each player in the
// queue so an interrupted batch resumes where it stopped.
type Runner struct {
	queue store.TaskQueue
	tuner *tuner.Tuner
	log   *logrus.Entry
}

func NewRunner(queue store.TaskQueue, t *tuner.Tuner) *Runner {
	return &Runner{queue: queue, tuner: t, log: logger.WithComponent("batch")}
}

func (r *Runner) WithLogger(l *logrus.Entry) *Runner {
	cp := *r
	cp.log = l
	return &cp
}

// Run enqueues players under batchID (a no-op for players already queued)
// and processes every task that is not done. Optimized weights are saved as
// each task finishes when opts.Save is set.
func (r *Runner) Run(ctx context.Context, batchID string, games []model.GameContext, players []string, opts tuner.Options) (*Summary, error) {
	if batchID == "" {
		return nil, fmt.Errorf("batch id is required")
	}
	started := time.Now()
	sum := &Summary{Batch: batchID, RunID: uuid.NewString()}
	log := r.log.WithFields(logrus.Fields{"batch": batchID, "run_id": sum.RunID})

	added, err := r.queue.Enqueue(batchID, players)
	if err != nil {
		return nil, fmt.Errorf("enqueue batch %s: %w", batchID, err)
	}
	sum.Enqueued = added

	tasks, err := r.queue.Resumable(batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	sum.Resumed = len(tasks)
	log.WithFields(logrus.Fields{"new": added, "pending": len(tasks)}).Info("starting batch")

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(started)
			return sum, err
		}
		if err := r.queue.MarkRunning(task.ID); err != nil {
			return sum, fmt.Errorf("mark task %d running: %w", task.ID, err)
		}

		pr := r.tuner.RunPlayer(ctx, sum.RunID, task.Player, games, opts)
		if ctx.Err() != nil {
			// Left running; Resumable resets it next time.
			sum.Duration = time.Since(started)
			return sum, ctx.Err()
		}
		sum.Players = append(sum.Players, pr)

		if pr.Err == nil && opts.Save && pr.Optimization != nil {
			if err := r.tuner.Weights().Save(task.Player, pr.Optimization.Weights); err != nil {
				pr.Err = fmt.Errorf("save weights: %w", err)
			} else {
				sum.Saved++
			}
		}

		if pr.Err != nil {
			sum.Failed++
			if err := r.queue.MarkFailed(task.ID, pr.Err); err != nil {
				log.WithError(err).Error("could not mark task failed")
			}
			continue
		}
		sum.Done++
		if err := r.queue.MarkDone(task.ID); err != nil {
			log.WithError(err).Error("could not mark task done")
		}
	}

	sum.Duration = time.Since(started)
	log.WithFields(logrus.Fields{
		"done":    sum.Done,
		"failed":  sum.Failed,
		"saved":   sum.Saved,
		"elapsed": sum.Duration.String(),
	}).Info("batch complete")
	return sum, nil
}
