package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseCSVHeaders(t *testing.T) {
	tbl, err := parseCSV(strings.NewReader("\ufeffPlayer_Name, AB\nJuan Soto, 4\n"))
	require.NoError(t, err)
	assert.True(t, tbl.has("player_name"))
	assert.Equal(t, "Juan Soto", tbl.get(tbl.rows[0], "player", "player_name"))
	assert.Equal(t, "4", tbl.get(tbl.rows[0], "ab"))
	assert.Equal(t, "", tbl.get(tbl.rows[0], "missing"))
}

func TestParseHelpers(t *testing.T) {
	n, err := parseInt("3.0")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = parseInt("NaN")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = parseInt("x")
	assert.Error(t, err)

	assert.True(t, parseBool("True"))
	assert.False(t, parseBool(""))

	d, err := parseDate("2024-04-01T23:05:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), d)
	_, err = parseDate("yesterday")
	assert.Error(t, err)
}

func TestParseWindAndWeather(t *testing.T) {
	speed, dir := parseWind("8 mph, Out To CF.")
	assert.Equal(t, 8.0, speed)
	assert.Equal(t, "Out To CF", dir)

	speed, dir = parseWind("Calm")
	assert.Equal(t, 0.0, speed)
	assert.Equal(t, "Calm", dir)

	assert.Equal(t, 72.0, parseWeatherTemp("72 degrees, Sunny"))
	assert.Equal(t, 0.0, parseWeatherTemp("Roof Closed"))
}

func TestLocalStart(t *testing.T) {
	assert.Equal(t, "19:05", localStart("7:05 PM", ""))
	assert.Equal(t, "00:10", localStart("12:10 am", ""))
	assert.Equal(t, "13:10", localStart("13:10", ""))
	// 2024-07-04 is EDT (UTC-4).
	assert.Equal(t, "19:10", localStart("", "2024-07-04T23:10:00Z"))
	assert.Equal(t, "", localStart("", "garbage"))
}

const scheduleCSV = `game_pk,game_date,game_datetime,status,home_team,away_team,venue_name,weather,wind,home_pitcher_hand,away_pitcher_hand
1001,2024-04-01,2024-04-01T17:05:00Z,Final,New York Yankees,Boston Red Sox,Yankee Stadium,"55 degrees, Cloudy","12 mph, Out To CF",R,L
1002,2024-04-02,2024-04-02T23:05:00Z,Final,New York Yankees,Boston Red Sox,Yankee Stadium,,,R,R
1003,2024-04-04,2024-04-04T23:05:00Z,Postponed,Toronto Blue Jays,New York Yankees,Rogers Centre,,,L,R
1004,2024-04-06,2024-04-06T23:05:00Z,Final,Toronto Blue Jays,New York Yankees,Rogers Centre,,,L,R
`

const gameLogCSV = `player_id,game_date,game_pk,is_home,opponent,AB,H,R,RBI,HR,2B,3B,BB,SO,SB,player_name
665742,2024-04-01,1001,True,Boston Red Sox,4,2,1,2,1,0,0,1,1,0,Juan Soto
665742,2024-04-02,,True,Boston Red Sox,3,1,0,0,0,1,0,0,2,0,Juan Soto
665742,2024-04-04,1003,False,Toronto Blue Jays,4,0,0,0,0,0,0,0,1,0,Juan Soto
665742,2024-04-06,1004,False,Toronto Blue Jays,5,3,2,1,0,1,0,0,0,1,Juan Soto
665742,2024-04-06,1004,False,Toronto Blue Jays,5,3,2,1,0,1,0,0,0,1,Juan Soto
665742,2024-04-09,9999,True,Tampa Bay Rays,4,1.0,0,0,0,0,0,0,1,0,Juan Soto
665742,bad-date,1005,True,Tampa Bay Rays,4,1,0,0,0,0,0,0,1,0,Juan Soto
`

const rosterCSV = `player_name,mlb_team,position,fantasy_team,bats
Juan Soto,NYY,OF,Team A,L
Aaron Judge,NYY,OF,Team A,R
`

func TestBuildHistory(t *testing.T) {
	dir := t.TempDir()
	sched, err := LoadSchedule(writeFile(t, dir, ScheduleFileName(2024), scheduleCSV))
	require.NoError(t, err)
	require.Len(t, sched, 4)
	assert.Equal(t, 55.0, sched[0].Temperature)
	assert.Equal(t, 12.0, sched[0].WindSpeed)
	assert.Equal(t, "13:05", sched[0].LocalTime)

	logs, skipped, err := LoadGameLogs(writeFile(t, dir, GameLogFileName(2024), gameLogCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, logs, 6)

	roster, err := LoadRoster(writeFile(t, dir, "yahoo_fantasy_rosters_20240401.csv", rosterCSV))
	require.NoError(t, err)

	weather := map[string]StadiumWeather{
		venueKey("Rogers Centre"): {Venue: "Rogers Centre", Temperature: 68, WindSpeed: 0, WindDirection: "Roof"},
	}

	games, report := BuildHistory(sched, logs, roster, weather)
	assert.Equal(t, MergeReport{Logs: 6, Merged: 3, Unmatched: 1, NotFinal: 1, Duplicates: 1}, report)
	require.Len(t, games, 4)

	first := games[0]
	assert.Equal(t, "1001", first.GameID)
	assert.Equal(t, "New York Yankees", first.Team)
	assert.Equal(t, model.HandLeft, first.PitcherHand, "home batter faces the away starter")
	assert.Equal(t, model.HandLeft, first.BatterHand, "filled from roster")
	assert.Equal(t, "Yankee Stadium", first.Venue)
	assert.Equal(t, 3, first.RestDays)

	second := games[1]
	assert.Equal(t, "1002", second.GameID, "matched on date and opponent")
	assert.Equal(t, 0, second.RestDays)

	third := games[2]
	assert.Equal(t, "1004", third.GameID)
	assert.Equal(t, "Toronto Blue Jays", third.Opponent)
	assert.Equal(t, model.HandLeft, third.PitcherHand)
	assert.Equal(t, 68.0, third.Temperature, "stadium weather fallback")
	assert.Equal(t, 3, third.RestDays)

	unmatched := games[3]
	assert.Equal(t, "9999", unmatched.GameID)
	assert.Equal(t, "NYY", unmatched.Team, "team from roster")
	assert.Equal(t, 1, unmatched.Stats.Hits)
	assert.Equal(t, 2, unmatched.RestDays)

	// Doubleheader logs without game_pk take the day's games in start order.
	day := time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)
	doubleheader := []ScheduleGame{
		{GamePK: "A2", Date: day, LocalTime: "19:05", Status: "Final", HomeTeam: "New York Yankees", AwayTeam: "Boston Red Sox"},
		{GamePK: "A1", Date: day, LocalTime: "13:05", Status: "Final", HomeTeam: "New York Yankees", AwayTeam: "Boston Red Sox"},
	}
	dhLogs := []GameLogRow{
		{PlayerName: "Juan Soto", Date: day, IsHome: true, Opponent: "Boston Red Sox", Stats: model.CountingStats{AtBats: 4, Hits: 3, HomeRuns: 2}},
		{PlayerName: "Juan Soto", Date: day, IsHome: true, Opponent: "Boston Red Sox", Stats: model.CountingStats{AtBats: 4, Hits: 1}},
	}
	games, report = BuildHistory(doubleheader, dhLogs, roster, nil)
	assert.Equal(t, MergeReport{Logs: 2, Merged: 2}, report)
	require.Len(t, games, 2)
	assert.Equal(t, "A1", games[0].GameID)
	assert.Equal(t, 3, games[0].Stats.Hits)
	assert.Equal(t, "A2", games[1].GameID)
	assert.Equal(t, 1, games[1].Stats.Hits)
}

func TestSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ScheduleFileName(2024), scheduleCSV)
	writeFile(t, dir, GameLogFileName(2024), gameLogCSV)
	writeFile(t, dir, "yahoo_fantasy_rosters_20240101.csv", "player_name,mlb_team\nOld Guy,BOS\n")
	writeFile(t, dir, "yahoo_fantasy_rosters_20240401.csv", rosterCSV)
	writeFile(t, dir, StadiumWeatherFile, "venue,temperature_c,wind_speed_kmh,wind_direction_cardinal\nRogers Centre,20,10,N\n")

	src := Source{Dir: dir, HistoryFile: filepath.Join(dir, "none.json"), StartYear: 2023, EndYear: 2024}
	ds, err := src.Load()
	require.NoError(t, err)
	assert.False(t, ds.FromSnapshot)
	assert.Len(t, ds.Games, 4)
	assert.Equal(t, []string{"Juan Soto", "Aaron Judge"}, RosterNames(ds.Roster))
	assert.InDelta(t, 68.0, ds.Games[2].Temperature, 1e-9)

	snap := filepath.Join(dir, "history.json")
	require.NoError(t, SaveHistory(snap, ds.Games, 2023, 2024))
	src.HistoryFile = snap
	ds2, err := src.Load()
	require.NoError(t, err)
	assert.True(t, ds2.FromSnapshot)
	require.Len(t, ds2.Games, 4)
	assert.Equal(t, ds.Games[0].Key(), ds2.Games[0].Key())
	assert.True(t, ds.Games[0].Date.Equal(ds2.Games[0].Date))
}

func TestSourceLoadNoHistory(t *testing.T) {
	_, err := Source{Dir: t.TempDir(), StartYear: 2024, EndYear: 2024}.Load()
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestLatestRosterPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", LatestRosterPath(dir))
	writeFile(t, dir, "yahoo_fantasy_rosters_20240101.csv", rosterCSV)
	p := writeFile(t, dir, "yahoo_fantasy_rosters_20240501.csv", rosterCSV)
	assert.Equal(t, p, LatestRosterPath(dir))

	roster, err := ResolveRoster(dir, filepath.Join(dir, "missing.csv"))
	require.NoError(t, err)
	assert.Nil(t, roster)
}

func TestGroupByPlayer(t *testing.T) {
	games := []model.GameContext{{Player: "Juan Soto"}, {Player: "juan soto "}, {Player: "Aaron Judge"}}
	g := GroupByPlayer(games)
	assert.Len(t, g["Juan Soto"], 2)
	assert.Len(t, g["Aaron Judge"], 1)
}

func TestGetDefaultHistoryPath(t *testing.T) {
	t.Setenv("HISTORY_FILE", "")
	assert.Equal(t, filepath.Join("data", "merged_history.json"), GetDefaultHistoryPath("data"))
	t.Setenv("HISTORY_FILE", "/tmp/h.json")
	assert.Equal(t, "/tmp/h.json", GetDefaultHistoryPath("data"))
}

func TestStatsAPIClientFetchGameLog(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v1/people/665742/stats", r.URL.Path)
		assert.Equal(t, "gameLog", r.URL.Query().Get("stats"))
		assert.Equal(t, "2024", r.URL.Query().Get("season"))
		assert.Equal(t, "hitting", r.URL.Query().Get("group"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stats":[{"splits":[
			{"date":"2024-04-01","isHome":true,"game":{"gamePk":1001},"opponent":{"name":"Boston Red Sox"},
			 "stat":{"atBats":4,"hits":2,"runs":1,"rbi":2,"homeRuns":1,"doubles":0,"triples":0,"baseOnBalls":1,"strikeOuts":1,"stolenBases":0}}
		]}]}`))
	}))
	defer srv.Close()

	c := NewStatsAPIClient(srv.URL, time.Second)
	c.Cache = NewResponseCache(time.Minute)

	rows, err := c.FetchGameLog(context.Background(), "665742", "Juan Soto", 2024)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1001", rows[0].GamePK)
	assert.Equal(t, "Boston Red Sox", rows[0].Opponent)
	assert.Equal(t, 1, rows[0].Stats.HomeRuns)
	assert.Equal(t, 1, rows[0].Stats.Walks)

	_, err = c.FetchGameLog(context.Background(), "665742", "Juan Soto", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second fetch served from cache")

	out := filepath.Join(t.TempDir(), GameLogFileName(2024))
	require.NoError(t, WriteGameLogCSV(out, rows))
	back, skipped, err := LoadGameLogs(out)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, back, 1)
	assert.Equal(t, rows[0].Stats, back[0].Stats)
	assert.True(t, back[0].IsHome)
}

func TestStatsAPIClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewStatsAPIClient(srv.URL, time.Second)
	_, err := c.FetchGameLog(context.Background(), "1", "x", 2024)
	var apiErr *StatsAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", apiErr.Code)
	assert.Equal(t, "30", apiErr.RetryAfter)

	_, err = c.FetchGameLog(context.Background(), "", "x", 2024)
	assert.Error(t, err)
}

func TestResponseCacheExpiry(t *testing.T) {
	c := NewResponseCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", []GameLogRow{{PlayerName: "x"}})
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 0, c.Len())

	var nilCache *ResponseCache
	nilCache.Set("a", nil)
	_, ok = nilCache.Get("a")
	assert.False(t, ok)
}

func TestSyntheticSeasonDeterministic(t *testing.T) {
	a := SyntheticSeason("Juan Soto", 30, 7)
	b := SyntheticSeason("Juan Soto", 30, 7)
	require.Len(t, a, 30)
	assert.Equal(t, a, b)
	for i, g := range a {
		assert.GreaterOrEqual(t, g.Stats.Singles(), 0, "game %d", i)
		_, err := model.DefaultPointsScheme().Points(g.Stats)
		assert.NoError(t, err)
		if i > 0 {
			assert.True(t, g.Date.After(a[i-1].Date))
		}
	}
}
