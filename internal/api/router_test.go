package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/api/handlers"
	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/scoring"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/tuner"
	"fantasy-backtest/internal/weights"
)

func newTestRouter(t *testing.T) (*gin.Engine, *tuner.Tuner) {
	t.Helper()
	d := newTestDeps(t)
	return NewRouter(d), d.Tuner
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)
	quiet := logger.Discard().WithField("test", t.Name())

	s := optimizer.DefaultSettings()
	s.PopSize = 2
	s.MaxIter = 3
	s.Polish = false

	engine := backtest.New(scoring.NewScorer(factor.Baseline(), scoring.NewCache()), model.PointsScheme{}).WithLogger(quiet)
	opt := optimizer.NewWeightOptimizer(engine, s).WithLogger(quiet)
	ws := weights.NewStore(t.TempDir()).WithLogger(quiet)
	tn := tuner.New(engine, opt, ws, nil).WithLogger(quiet)

	games := data.SyntheticLeague([]string{"Juan Soto", "Aaron Judge"}, 25, 11)
	games = append(games, data.SyntheticSeason("Rookie Call-Up", 1, 5)...)
	roster := []data.RosterEntry{
		{PlayerName: "Juan Soto", MLBTeam: "NYM", FantasyTeam: "Team A"},
		{PlayerName: "Aaron Judge", MLBTeam: "NYY", FantasyTeam: "Team B"},
		{PlayerName: "Rookie Call-Up", MLBTeam: "SEA", FantasyTeam: "Team A"},
	}

	return Deps{
		Tuner:    tn,
		History:  handlers.NewHistory(games, roster),
		Recorder: store.NewNoopRecorder(),
	}
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"games":51`)
}

func TestRunBacktestAndLedger(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/backtest", models.BacktestRequest{Player: "juan soto", IncludeLedger: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.BacktestResponse](t, w)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 25, resp.Summary.GamesAnalyzed)
	assert.Len(t, resp.Ledger, 25)
	assert.NotEmpty(t, resp.ID)

	w = do(t, r, http.MethodGet, "/api/v1/backtest/"+resp.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ledger":[`)

	w = do(t, r, http.MethodGet, "/api/v1/backtest/missing/ledger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBacktestValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/backtest", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[models.ErrorResponse](t, w).Error.Code)

	w = do(t, r, http.MethodPost, "/api/v1/backtest", models.BacktestRequest{
		Player:  "Juan Soto",
		Weights: map[string]float64{model.FactorWind: -1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_WEIGHTS", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestRunBacktestUnknownPlayer(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/backtest", models.BacktestRequest{Player: "Nobody"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.BacktestResponse](t, w)
	assert.Equal(t, "no_games", resp.Status)
	assert.Zero(t, resp.Summary.GamesAnalyzed)
}

func TestOptimizeSavesWeights(t *testing.T) {
	r, tn := newTestRouter(t)
	seed := int64(7)

	w := do(t, r, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{Player: "Juan Soto", Save: true, Seed: &seed})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.OptimizeResponse](t, w)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Optimization)
	require.NotNil(t, resp.Baseline)
	assert.True(t, resp.Saved)
	assert.Equal(t, 25, resp.Optimization.GamesAnalyzed)
	assert.True(t, tn.Weights().HasOverride("Juan Soto"))

	w = do(t, r, http.MethodGet, "/api/v1/weights/Juan%20Soto", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.WeightsResponse](t, w).Override)
}

func TestOptimizeSkipsShortHistory(t *testing.T) {
	r, tn := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{Player: "Rookie Call-Up", Save: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.OptimizeResponse](t, w)
	assert.Equal(t, "skipped", resp.Status)
	assert.Nil(t, resp.Optimization)
	assert.False(t, resp.Saved)
	assert.False(t, tn.Weights().HasOverride("Rookie Call-Up"))
}

func TestOptimizeRejectsBadBounds(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{
		Player: "Juan Soto",
		Bounds: map[string]optimizer.Bounds{model.FactorWind: {Lower: 1, Upper: 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BOUNDS", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestCompareBacktests(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/backtest/compare", models.CompareBacktestRequest{
		Player: "Aaron Judge",
		Variations: []models.BacktestVariation{
			{Name: "wind-heavy", Weights: map[string]float64{model.FactorWind: 1}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.CompareBacktestResponse](t, w)
	require.Len(t, resp.Comparison, 2)
	names := []string{resp.Comparison[0].Name, resp.Comparison[1].Name}
	assert.ElementsMatch(t, []string{"current", "wind-heavy"}, names)
	assert.GreaterOrEqual(t, resp.Comparison[0].Accuracy, resp.Comparison[1].Accuracy)
}

func TestRankPlayers(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/rank?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.RankResponse](t, w)
	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, 1, resp.Rankings[0].Rank)
	assert.Equal(t, 3, resp.Summary.Players)
	assert.NotEmpty(t, resp.RunID)
}

func TestWeightsLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPut, "/api/v1/weights/Aaron%20Judge", models.WeightsRequest{Weights: map[string]float64{model.FactorMatchup: 0.4}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/weights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.WeightsListResponse](t, w)
	assert.Contains(t, list.Players, "Aaron Judge")

	w = do(t, r, http.MethodDelete, "/api/v1/weights/Aaron%20Judge", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/weights/Aaron%20Judge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.WeightsResponse](t, w)
	assert.False(t, got.Override)
	assert.Equal(t, model.DefaultWeightFor(model.FactorMatchup), got.Weights[model.FactorMatchup])

	w = do(t, r, http.MethodPut, "/api/v1/weights", models.WeightsRequest{Weights: map[string]float64{model.FactorWind: -0.1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFactorsPlayersRuns(t *testing.T) {
	r, tn := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/factors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	factors := decode[struct {
		Factors []models.FactorInfo `json:"factors"`
	}](t, w)
	assert.Len(t, factors.Factors, tn.Engine().Scorer().Provider().Len())

	w = do(t, r, http.MethodGet, "/api/v1/players", nil)
	require.Equal(t, http.StatusOK, w.Code)
	players := decode[struct {
		Players []models.PlayerInfo `json:"players"`
	}](t, w)
	require.Len(t, players.Players, 3)
	assert.Equal(t, "Juan Soto", players.Players[0].Name)
	assert.Equal(t, 25, players.Players[0].Games)
	assert.Equal(t, "NYM", players.Players[0].MLBTeam)
	assert.Equal(t, 1, players.Players[2].Games)

	w = do(t, r, http.MethodGet, "/api/v1/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestReloadHistory(t *testing.T) {
	d := newTestDeps(t)
	fail := false
	d.Reload = func() ([]model.GameContext, []data.RosterEntry, error) {
		if fail {
			return nil, nil, errors.New("disk gone")
		}
		return data.SyntheticSeason("Juan Soto", 5, 2), nil, nil
	}
	r := NewRouter(d)

	w := do(t, r, http.MethodPost, "/api/v1/history/reload", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ReloadResponse{Games: 5, Roster: 0}, decode[models.ReloadResponse](t, w))

	health := decode[map[string]any](t, do(t, r, http.MethodGet, "/health", nil))
	assert.Equal(t, 5.0, health["games"])

	fail = true
	w = do(t, r, http.MethodPost, "/api/v1/history/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "RELOAD_FAILED", decode[models.ErrorResponse](t, w).Error.Code)

	games, _ := d.History.Snapshot()
	assert.Len(t, games, 5, "failed reload keeps the previous history")
}

func TestReloadDisabledWithoutLoader(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/history/reload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
