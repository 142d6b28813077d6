package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", c.Data.Dir)
	assert.Equal(t, "config", c.Weights.Dir)
	assert.Equal(t, model.DefaultPointsScheme(), c.Scoring)
	assert.Equal(t, optimizer.DefaultSettings(), c.Optimizer.ToSettings())
	assert.Equal(t, optimizer.DefaultBounds, c.Optimizer.ResolvedDefaultBounds())
	assert.Equal(t, 8080, c.API.Port)
	assert.Equal(t, "0 0 6 * * *", c.Schedule.RetuneCron)
}

func TestLoadYAMLAndOptimizerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fast.yaml", `
optimizer:
  popsize: 4
  maxiter: 5
  polish: false
  bounds:
    wind: {lower: 0, upper: 0.5}
    injury: {lower: 0.05, upper: 0.2}
`)
	path := writeFile(t, dir, "config.yaml", `
data:
  dir: /srv/mlb
  start_year: 2023
  history_file: history.json
optimizer_file: fast.yaml
optimizer:
  maxiter: 8
  bounds:
    wind: {lower: 0, upper: 0.4}
scoring:
  home_run: 12
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/mlb", c.Data.Dir)
	assert.Equal(t, "", c.Data.RosterPath())
	assert.Equal(t, "/srv/mlb/history.json", c.Data.HistoryPath())

	s := c.Optimizer.ToSettings()
	assert.Equal(t, 4, s.PopSize)
	assert.Equal(t, 8, s.MaxIter)
	assert.False(t, s.Polish)
	assert.Equal(t, optimizer.Bounds{Lower: 0, Upper: 0.4}, c.Optimizer.Bounds["wind"])
	assert.Equal(t, optimizer.Bounds{Lower: 0.05, Upper: 0.2}, c.Optimizer.Bounds["injury"])

	assert.Equal(t, 12.0, c.Scoring.HomeRun)
	assert.Equal(t, 0.0, c.Scoring.Single)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FANTASY_DATA_DIR", "/tmp/data")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("PORT", "9191")
	t.Setenv("OPTIMIZER_WORKERS", "3")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", c.Data.Dir)
	assert.Equal(t, "/tmp/x.db", c.Database.SQLitePath)
	assert.Equal(t, 9191, c.API.Port)
	assert.Equal(t, 3, c.Optimizer.ToSettings().Workers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad bounds":  "optimizer:\n  bounds:\n    wind: {lower: 0.3, upper: 0.1}\n",
		"bad years":   "data:\n  start_year: 2024\n  end_year: 2020\n",
		"bad recomb":  "optimizer:\n  popsize: -2\n",
		"bad port":    "api:\n  port: 70000\n",
		"bad default": "optimizer:\n  default_bounds: {lower: 1, upper: 0}\n",
	}
	for name, body := range cases {
		path := writeFile(t, dir, "c.yaml", body)
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "data: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMergeOptimizer(t *testing.T) {
	yes := true
	base := OptimizerConfig{PopSize: 10, Seed: 7, Bounds: map[string]optimizer.Bounds{"a": {Lower: 0, Upper: 1}}}
	out := MergeOptimizer(base, OptimizerConfig{Seed: 9, Polish: &yes, Bounds: map[string]optimizer.Bounds{"b": {Lower: 0, Upper: 2}}})
	assert.Equal(t, 10, out.PopSize)
	assert.Equal(t, int64(9), out.Seed)
	assert.True(t, *out.Polish)
	assert.Len(t, out.Bounds, 2)
	assert.Len(t, base.Bounds, 1)
}
