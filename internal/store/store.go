package store

import (
	"time"

	"fantasy-backtest/internal/model"
)

// RunRecord is one player's result within a suite run.
type RunRecord struct {
	RunID         string              `json:"run_id"`
	Player        string              `json:"player"`
	Mode          string              `json:"mode"` // "backtest" or "optimize"
	GamesAnalyzed int                 `json:"games_analyzed"`
	GamesSkipped  int                 `json:"games_skipped"`
	Accuracy      float64             `json:"accuracy"`
	MAE           float64             `json:"mae"`
	RMSE          float64             `json:"rmse"`
	Evaluations   int                 `json:"evaluations,omitempty"`
	Converged     bool                `json:"converged,omitempty"`
	Weights       model.FactorWeights `json:"weights"`
	Duration      time.Duration       `json:"duration"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Recorder persists run history for later comparison.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecentRuns(player string, limit int) ([]RunRecord, error)
	Close() error
}

// TaskStatus is the lifecycle state of one batch task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is one player's unit of work inside a named batch.
type Task struct {
	ID        int64      `json:"id"`
	Batch     string     `json:"batch"`
	Player    string     `json:"player"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskQueue is a durable per-batch checkpoint. Enqueue is idempotent on
// (batch, player), so re-running a batch only picks up unfinished work.
type TaskQueue interface {
	Enqueue(batch string, players []string) (int, error)
	Resumable(batch string) ([]Task, error)
	Tasks(batch string) ([]Task, error)
	MarkRunning(id int64) error
	MarkDone(id int64) error
	MarkFailed(id int64, cause error) error
}
