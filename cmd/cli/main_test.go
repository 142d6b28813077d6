package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/optimizer"
)

func writeConfig(t *testing.T, sqlitePath string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	cfg := fmt.Sprintf(`
data:
  dir: %s
weights:
  dir: %s
database:
  sqlite_path: %q
log:
  level: error
optimizer:
  popsize: 2
  maxiter: 2
  polish: false
`, dataDir, filepath.Join(dir, "weights"), sqlitePath)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dataDir
}

func TestRunUsageErrors(t *testing.T) {
	assert.Equal(t, exitUsage, run(nil))
	assert.Equal(t, exitUsage, run([]string{"nope"}))
	assert.Equal(t, exitUsage, run([]string{"weights"}))
	assert.Equal(t, exitUsage, run([]string{"backtest", "--save"}))
	assert.Equal(t, exitUsage, run([]string{"batch"}))
	assert.Equal(t, exitOK, run([]string{"help"}))
}

func TestWeightsCommands(t *testing.T) {
	cfg, _ := writeConfig(t, "off")
	assert.Equal(t, exitOK, run([]string{"weights", "show", "--config", cfg}))
	assert.Equal(t, exitOK, run([]string{"weights", "list", "--config", cfg}))
	assert.Equal(t, exitUsage, run([]string{"weights", "reset", "--config", cfg}))
	assert.Equal(t, exitOK, run([]string{"weights", "reset", "--config", cfg, "--player", "Juan Soto"}))
}

func TestBacktestCommand(t *testing.T) {
	cfg, dataDir := writeConfig(t, "off")

	// Nothing to analyze.
	assert.Equal(t, exitError, run([]string{"backtest", "--config", cfg}))

	games := data.SyntheticLeague([]string{"Juan Soto"}, 12, 4)
	require.NoError(t, data.SaveHistory(filepath.Join(dataDir, "merged_history.json"), games, 2024, 2024))
	ledgers := filepath.Join(t.TempDir(), "ledgers")
	assert.Equal(t, exitOK, run([]string{"backtest", "--config", cfg, "--optimize", "--seed", "3", "--ledger-dir", ledgers}))
	assert.FileExists(t, filepath.Join(ledgers, "juan_soto_ledger.csv"))
}

func TestBatchNeedsDatabase(t *testing.T) {
	cfg, _ := writeConfig(t, "off")
	assert.Equal(t, exitError, run([]string{"batch", "--config", cfg, "--id", "b1"}))
}

func TestSettingsOverridesOnlyExplicitFlags(t *testing.T) {
	base := optimizer.DefaultSettings()
	base.Seed = 42
	base.Workers = 4

	parse := func(args ...string) (*flag.FlagSet, *int, *int64) {
		fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
		workers := fs.Int("workers", 0, "")
		seed := fs.Int64("seed", 0, "")
		require.NoError(t, fs.Parse(args))
		return fs, workers, seed
	}

	fs, workers, seed := parse()
	got, changed := settingsOverrides(fs, base, *workers, *seed)
	assert.False(t, changed)
	assert.Equal(t, base, got)

	fs, workers, seed = parse("--seed", "0")
	got, changed = settingsOverrides(fs, base, *workers, *seed)
	assert.True(t, changed)
	assert.Equal(t, int64(0), got.Seed)
	assert.Equal(t, 4, got.Workers)

	fs, workers, seed = parse("--workers", "1")
	got, _ = settingsOverrides(fs, base, *workers, *seed)
	assert.Equal(t, 1, got.Workers)
	assert.Equal(t, int64(42), got.Seed)
}

func TestScheduleInterruptIsAnError(t *testing.T) {
	cfg, _ := writeConfig(t, filepath.Join(t.TempDir(), "runs.db"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmdSchedule(ctx, []string{"--config", cfg})
	assert.ErrorIs(t, err, context.Canceled)
}
