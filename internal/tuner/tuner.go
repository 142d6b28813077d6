package tuner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/metrics"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/weights"
)

// ErrNoHistory aborts a run that has neither games nor players to analyze.
var ErrNoHistory = errors.New("no historical games and no players to analyze")

const (
	ModeBacktest = "backtest"
	ModeOptimize = "optimize"
)

// Options control one suite run.
type Options struct {
	// Player restricts the run to one player; "" means every player given.
	Player    string
	Optimize  bool
	Save      bool
	LedgerDir string
	// Bounds overrides the optimizer interval for individual factors.
	Bounds map[string]optimizer.Bounds
}

func (o Options) Mode() string {
	if o.Optimize {
		return ModeOptimize
	}
	return ModeBacktest
}

// PlayerReport is the outcome for one player. Err is set when the player
// could not be processed; the rest of the suite still runs.
type PlayerReport struct {
	Player       string                    `json:"player"`
	Result       *backtest.Result          `json:"result"`
	Baseline     *backtest.Result          `json:"baseline,omitempty"`
	Optimization *model.OptimizationResult `json:"optimization,omitempty"`
	LedgerPath   string                    `json:"ledger_path,omitempty"`
	Err          error                     `json:"-"`
	Error        string                    `json:"error,omitempty"`
}

// Improvement is optimized minus baseline accuracy, 0 without optimization.
func (p PlayerReport) Improvement() float64 {
	if p.Optimization == nil || p.Baseline == nil {
		return 0
	}
	return p.Result.Accuracy - p.Baseline.Accuracy
}

type Report struct {
	RunID     string         `json:"run_id"`
	Mode      string         `json:"mode"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Players   []PlayerReport `json:"players"`
	Saved     int            `json:"saved"`
	SaveError string         `json:"save_error,omitempty"`
}

// Succeeded counts players that produced a result.
func (r *Report) Succeeded() int {
	n := 0
	for _, p := range r.Players {
		if p.Err == nil && p.Result != nil {
			n++
		}
	}
	return n
}

// Tuner runs backtests and weight searches over a roster.
type Tuner struct {
	engine    *backtest.Engine
	optimizer *optimizer.WeightOptimizer
	weights   *weights.Store
	recorder  store.Recorder
	log       *logrus.Entry
}

// New wires a tuner. A nil recorder disables run history.
func New(engine *backtest.Engine, opt *optimizer.WeightOptimizer, ws *weights.Store, rec store.Recorder) *Tuner {
	if rec == nil {
		rec = store.NewNoopRecorder()
	}
	return &Tuner{
		engine:    engine,
		optimizer: opt,
		weights:   ws,
		recorder:  rec,
		log:       logger.WithComponent("tuner"),
	}
}

func (t *Tuner) WithLogger(l *logrus.Entry) *Tuner {
	cp := *t
	cp.log = l
	return &cp
}

// WithOptimizer returns a copy searching with o.
func (t *Tuner) WithOptimizer(o *optimizer.WeightOptimizer) *Tuner {
	cp := *t
	cp.optimizer = o
	return &cp
}

func (t *Tuner) Engine() *backtest.Engine              { return t.engine }
func (t *Tuner) Weights() *weights.Store               { return t.weights }
func (t *Tuner) Optimizer() *optimizer.WeightOptimizer { return t.optimizer }

// ResolvePlayers picks who a run covers: the single requested player, else
// the roster, else everyone who appears in games.
func ResolvePlayers(games []model.GameContext, roster []string, only string) ([]string, error) {
	if strings.TrimSpace(only) != "" {
		return []string{strings.TrimSpace(only)}, nil
	}
	if len(roster) > 0 {
		return roster, nil
	}
	players := backtest.Players(games)
	if len(players) == 0 {
		return nil, ErrNoHistory
	}
	return players, nil
}

// Run processes every player in turn. Per-player failures are recorded in the
// report; only cancellation or ErrNoHistory stop the run.
func (t *Tuner) Run(ctx context.Context, games []model.GameContext, roster []string, opts Options) (*Report, error) {
	players, err := ResolvePlayers(games, roster, opts.Player)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		t.log.Warn("no historical games loaded; every player will report 0 games")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Mode:      opts.Mode(),
		StartedAt: time.Now(),
	}
	log := t.log.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"players": len(players),
		"games":   len(games),
		"mode":    report.Mode,
	}).Info("starting run")

	updates := make(map[string]model.FactorWeights)
	for _, player := range players {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.StartedAt)
			return report, err
		}
		pr := t.RunPlayer(ctx, report.RunID, player, games, opts)
		if pr.Err != nil && ctx.Err() != nil {
			report.Players = append(report.Players, pr)
			report.Duration = time.Since(report.StartedAt)
			return report, ctx.Err()
		}
		if pr.Optimization != nil && opts.Save {
			updates[player] = pr.Optimization.Weights
		}
		report.Players = append(report.Players, pr)
	}

	if len(updates) > 0 {
		if err := t.weights.SavePlayers(updates); err != nil {
			report.SaveError = err.Error()
			log.WithError(err).Error("could not save optimized weights")
		} else {
			report.Saved = len(updates)
			log.WithField("players", len(updates)).Info("saved optimized weights")
		}
	}

	report.Duration = time.Since(report.StartedAt)
	log.WithFields(logrus.Fields{
		"succeeded": report.Succeeded(),
		"players":   len(report.Players),
		"elapsed":   report.Duration.String(),
	}).Info("run complete")
	return report, nil
}

// RunPlayer backtests one player with their stored weights and, when asked,
// searches for better ones. It does not save weights.
func (t *Tuner) RunPlayer(ctx context.Context, runID, player string, games []model.GameContext, opts Options) PlayerReport {
	log := t.log.WithFields(logrus.Fields{"run_id": runID, "player": player})
	mode := opts.Mode()
	started := time.Now()
	metrics.BacktestsTotal.WithLabelValues(mode).Inc()

	pr := PlayerReport{Player: player}
	prep := t.engine.Prepare(player, games)
	current := t.weights.Load(player)
	baseline := prep.Evaluate(current)
	pr.Result = baseline
	if prep.Games() == 0 {
		log.Warn("no games found for player")
	}

	if opts.Optimize {
		opt, err := t.optimizer.OptimizePrepared(ctx, prep, opts.Bounds)
		switch {
		case err == nil:
			pr.Baseline = baseline
			pr.Optimization = opt
			pr.Result = prep.Evaluate(opt.Weights)
		case errors.Is(err, optimizer.ErrInsufficientGames):
			log.WithError(err).Warn("skipping optimization")
		default:
			pr.Err = err
			pr.Error = err.Error()
			log.WithError(err).Error("optimization failed")
		}
	} else {
		metrics.BacktestDuration.WithLabelValues(ModeBacktest).Observe(time.Since(started).Seconds())
	}

	if opts.LedgerDir != "" && pr.Result.GamesAnalyzed > 0 {
		path, err := t.writeLedger(opts.LedgerDir, pr.Result, prep.Names)
		if err != nil {
			log.WithError(err).Warn("could not write ledger")
		} else {
			pr.LedgerPath = path
		}
	}

	t.record(log, runID, mode, pr, time.Since(started))
	log.WithFields(logrus.Fields{
		"games":    pr.Result.GamesAnalyzed,
		"accuracy": pr.Result.Accuracy,
		"mae":      pr.Result.MAE,
		"rmse":     pr.Result.RMSE,
	}).Info("player complete")
	return pr
}

func (t *Tuner) writeLedger(dir string, res *backtest.Result, names []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, LedgerFileName(res.Player))
	if err := backtest.WriteLedgerCSV(path, res.Ledger, names); err != nil {
		return "", fmt.Errorf("write ledger %s: %w", path, err)
	}
	return path, nil
}

func (t *Tuner) record(log *logrus.Entry, runID, mode string, pr PlayerReport, elapsed time.Duration) {
	if pr.Result == nil {
		return
	}
	rec := &store.RunRecord{
		RunID:         runID,
		Player:        pr.Player,
		Mode:          mode,
		GamesAnalyzed: pr.Result.GamesAnalyzed,
		GamesSkipped:  pr.Result.GamesSkipped,
		Accuracy:      pr.Result.Accuracy,
		MAE:           pr.Result.MAE,
		RMSE:          pr.Result.RMSE,
		Weights:       pr.Result.Weights,
		Duration:      elapsed,
	}
	if pr.Optimization != nil {
		rec.Evaluations = pr.Optimization.Evaluations
		rec.Converged = pr.Optimization.Converged
	}
	if err := t.recorder.RecordRun(rec); err != nil {
		log.WithError(err).Warn("could not record run")
	}
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// LedgerFileName is the per-player ledger CSV name, e.g. juan_soto_ledger.csv.
func LedgerFileName(player string) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(player), "_"), "_")
	if slug == "" {
		slug = "player"
	}
	return slug + "_ledger.csv"
}
