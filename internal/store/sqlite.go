package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// SQLiteStore keeps run history and batch tasks in one SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
	now func() time.Time
}

var (
	_ Recorder  = (*SQLiteStore)(nil)
	_ TaskQueue = (*SQLiteStore)(nil)
)

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.WithComponent("store"), now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.WithField("path", path).Info("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			player         TEXT NOT NULL,
			mode           TEXT NOT NULL,
			games_analyzed INTEGER,
			games_skipped  INTEGER,
			accuracy       REAL,
			mae            REAL,
			rmse           REAL,
			evaluations    INTEGER,
			converged      INTEGER,
			weights        TEXT,
			duration_ms    INTEGER,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_player ON backtest_runs(player, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run ON backtest_runs(run_id)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			batch      TEXT NOT NULL,
			player     TEXT NOT NULL,
			status     TEXT NOT NULL,
			attempts   INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			UNIQUE(batch, player)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_batch ON tasks(batch, status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordRun(rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.Exec(`INSERT INTO backtest_runs
		(run_id, player, mode, games_analyzed, games_skipped, accuracy, mae, rmse,
		 evaluations, converged, weights, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Player, rec.Mode, rec.GamesAnalyzed, rec.GamesSkipped,
		rec.Accuracy, rec.MAE, rec.RMSE, rec.Evaluations, boolInt(rec.Converged),
		string(w), rec.Duration.Milliseconds(), created.UnixMilli(),
	)
	return err
}

// RecentRuns returns the newest runs first. An empty player matches all.
func (s *SQLiteStore) RecentRuns(player string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT run_id, player, mode, games_analyzed, games_skipped, accuracy, mae, rmse,
		evaluations, converged, weights, duration_ms, created_at
		FROM backtest_runs`
	args := []any{}
	if player != "" {
		q += ` WHERE player = ? COLLATE NOCASE`
		args = append(args, player)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r         RunRecord
			converged int
			weights   string
			durMS     int64
			created   int64
		)
		if err := rows.Scan(&r.RunID, &r.Player, &r.Mode, &r.GamesAnalyzed, &r.GamesSkipped,
			&r.Accuracy, &r.MAE, &r.RMSE, &r.Evaluations, &converged, &weights, &durMS, &created); err != nil {
			return nil, err
		}
		r.Converged = converged != 0
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.CreatedAt = time.UnixMilli(created).UTC()
		if weights != "" {
			var w model.FactorWeights
			if err := json.Unmarshal([]byte(weights), &w); err == nil {
				r.Weights = w
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Enqueue adds a pending task per player and reports how many were new.
func (s *SQLiteStore) Enqueue(batch string, players []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	added := 0
	for _, p := range players {
		res, err := tx.Exec(`INSERT OR IGNORE INTO tasks (batch, player, status, updated_at) VALUES (?,?,?,?)`,
			batch, p, TaskPending, now)
		if err != nil {
			return 0, fmt.Errorf("enqueue %s: %w", p, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

// Resumable returns every task not yet done. Tasks left running by an
// interrupted process are reset to pending first.
func (s *SQLiteStore) Resumable(batch string) ([]Task, error) {
	s.mu.Lock()
	if _, err := s.db.Exec(`UPDATE tasks SET status = ?, updated_at = ? WHERE batch = ? AND status = ?`,
		TaskPending, s.now().UnixMilli(), batch, TaskRunning); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.query(`WHERE batch = ? AND status != ? ORDER BY id`, batch, TaskDone)
}

func (s *SQLiteStore) Tasks(batch string) ([]Task, error) {
	return s.query(`WHERE batch = ? ORDER BY id`, batch)
}

func (s *SQLiteStore) query(where string, args ...any) ([]Task, error) {
	rows, err := s.db.Query(`SELECT id, batch, player, status, attempts, last_error, updated_at FROM tasks `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t       Task
			status  string
			updated int64
		)
		if err := rows.Scan(&t.ID, &t.Batch, &t.Player, &status, &t.Attempts, &t.LastError, &updated); err != nil {
			return nil, err
		}
		t.Status = TaskStatus(status)
		t.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkRunning(id int64) error {
	return s.update(`UPDATE tasks SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		TaskRunning, s.now().UnixMilli(), id)
}

func (s *SQLiteStore) MarkDone(id int64) error {
	return s.update(`UPDATE tasks SET status = ?, last_error = '', updated_at = ? WHERE id = ?`,
		TaskDone, s.now().UnixMilli(), id)
}

func (s *SQLiteStore) MarkFailed(id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.update(`UPDATE tasks SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		TaskFailed, msg, s.now().UnixMilli(), id)
}

func (s *SQLiteStore) update(stmt string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(stmt, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %v not found", args[len(args)-1])
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
