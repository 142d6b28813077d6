package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fantasy-backtest/internal/model"
)

const defaultHistoryFile = "merged_history.json"

// GetDefaultHistoryPath returns HISTORY_FILE, or merged_history.json under dir.
func GetDefaultHistoryPath(dir string) string {
	if p := os.Getenv("HISTORY_FILE"); p != "" {
		return p
	}
	return filepath.Join(dir, defaultHistoryFile)
}

func LoadHistory(path string) (*model.HistoryFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var h model.HistoryFile
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", path, err)
	}
	return &h, nil
}

// SaveHistory writes the snapshot atomically.
func SaveHistory(path string, games []model.GameContext, startYear, endYear int) error {
	h := model.HistoryFile{
		GeneratedAt: time.Now().UTC(),
		StartYear:   startYear,
		EndYear:     endYear,
		Games:       games,
	}
	if h.Games == nil {
		h.Games = []model.GameContext{}
	}
	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// GroupByPlayer splits games into player-keyed slices. Keys keep the first
// spelling seen.
func GroupByPlayer(games []model.GameContext) map[string][]model.GameContext {
	out := map[string][]model.GameContext{}
	names := map[string]string{}
	for _, g := range games {
		k := strings.ToLower(strings.TrimSpace(g.Player))
		name, ok := names[k]
		if !ok {
			name = g.Player
			names[k] = name
		}
		out[name] = append(out[name], g)
	}
	return out
}
