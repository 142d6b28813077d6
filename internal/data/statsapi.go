package data

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// StatsAPIClient fetches hitting game logs from the MLB stats API.
type StatsAPIClient struct {
	BaseURL string
	Client  *http.Client
	Cache   *ResponseCache

	log *logrus.Entry
}

// NewStatsAPIClient creates a client. Empty baseURL defaults to
// https://statsapi.mlb.com; zero timeout defaults to 30s.
func NewStatsAPIClient(baseURL string, timeout time.Duration) *StatsAPIClient {
	if baseURL == "" {
		baseURL = "https://statsapi.mlb.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StatsAPIClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		log:     logger.WithComponent("statsapi"),
	}
}

// StatsAPIError is a non-200 response from the stats API.
type StatsAPIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *StatsAPIError) Error() string {
	return e.Message
}

type gameLogResponse struct {
	Stats []struct {
		Splits []struct {
			Date   string `json:"date"`
			IsHome bool   `json:"isHome"`
			Game   struct {
				GamePk int64 `json:"gamePk"`
			} `json:"game"`
			Opponent struct {
				Name string `json:"name"`
			} `json:"opponent"`
			Stat struct {
				AtBats      int `json:"atBats"`
				Hits        int `json:"hits"`
				Runs        int `json:"runs"`
				RBI         int `json:"rbi"`
				HomeRuns    int `json:"homeRuns"`
				Doubles     int `json:"doubles"`
				Triples     int `json:"triples"`
				BaseOnBalls int `json:"baseOnBalls"`
				StrikeOuts  int `json:"strikeOuts"`
				StolenBases int `json:"stolenBases"`
			} `json:"stat"`
		} `json:"splits"`
	} `json:"stats"`
}

// FetchGameLog returns one player's hitting game log for a season.
func (c *StatsAPIClient) FetchGameLog(ctx context.Context, playerID, playerName string, season int) ([]GameLogRow, error) {
	if playerID == "" {
		return nil, fmt.Errorf("player_id is required")
	}
	key := GenerateCacheKey(playerID, season)
	if rows, ok := c.Cache.Get(key); ok {
		c.log.WithFields(logrus.Fields{"player_id": playerID, "season": season}).Debug("cache hit")
		return rows, nil
	}

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/people/%s/stats", c.BaseURL, url.PathEscape(playerID)))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("stats", "gameLog")
	q.Set("season", strconv.Itoa(season))
	q.Set("group", "hitting")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Client.Do(req)
	fields := logrus.Fields{"player_id": playerID, "season": season, "duration": time.Since(start)}
	if err != nil {
		c.log.WithFields(fields).WithError(err).Warn("request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.log.WithFields(fields).WithField("status", resp.StatusCode).Debug("response")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &StatsAPIError{StatusCode: resp.StatusCode, Code: "NOT_FOUND", Message: fmt.Sprintf("player %s not found", playerID)}
	case http.StatusTooManyRequests:
		retry := resp.Header.Get("Retry-After")
		return nil, &StatsAPIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retry),
			RetryAfter: retry,
		}
	default:
		return nil, &StatsAPIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var body gameLogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var rows []GameLogRow
	for _, st := range body.Stats {
		for _, sp := range st.Splits {
			date, err := parseDate(sp.Date)
			if err != nil {
				continue
			}
			rows = append(rows, GameLogRow{
				PlayerID:   playerID,
				PlayerName: playerName,
				GamePK:     strconv.FormatInt(sp.Game.GamePk, 10),
				Date:       date,
				IsHome:     sp.IsHome,
				Opponent:   sp.Opponent.Name,
				Stats: model.CountingStats{
					AtBats:      sp.Stat.AtBats,
					Hits:        sp.Stat.Hits,
					Doubles:     sp.Stat.Doubles,
					Triples:     sp.Stat.Triples,
					HomeRuns:    sp.Stat.HomeRuns,
					RBI:         sp.Stat.RBI,
					Runs:        sp.Stat.Runs,
					StolenBases: sp.Stat.StolenBases,
					Walks:       sp.Stat.BaseOnBalls,
					Strikeouts:  sp.Stat.StrikeOuts,
				},
			})
		}
	}
	c.Cache.Set(key, rows)
	return rows, nil
}

var gameLogHeader = []string{
	"player_id", "player_name", "game_pk", "game_date", "is_home", "opponent",
	"ab", "h", "2b", "3b", "hr", "rbi", "r", "sb", "bb", "so",
}

// WriteGameLogCSV writes rows in the mlb_game_logs_<season>.csv layout.
func WriteGameLogCSV(path string, rows []GameLogRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(gameLogHeader); err != nil {
		return err
	}
	for _, r := range rows {
		s := r.Stats
		rec := []string{
			r.PlayerID, r.PlayerName, r.GamePK, r.Date.Format("2006-01-02"),
			strconv.FormatBool(r.IsHome), r.Opponent,
		}
		for _, v := range []int{s.AtBats, s.Hits, s.Doubles, s.Triples, s.HomeRuns, s.RBI, s.Runs, s.StolenBases, s.Walks, s.Strikeouts} {
			rec = append(rec, strconv.Itoa(v))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
