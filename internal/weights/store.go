package weights

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

const (
	GlobalFile = "factor_weights.json"
	PlayerFile = "player_weights.json"
)

// GlobalKey addresses the global weights in Load and Save.
const GlobalKey = ""

// Store persists global factor weights and per-player overrides as JSON.
// Loads never fail: missing or corrupt files fall back to defaults.
type Store struct {
	globalPath string
	playerPath string

	mu  sync.Mutex
	log *logrus.Entry
}

// NewStore keeps both files in dir.
func NewStore(dir string) *Store {
	return &Store{
		globalPath: filepath.Join(dir, GlobalFile),
		playerPath: filepath.Join(dir, PlayerFile),
		log:        logger.WithComponent("weights"),
	}
}

func (s *Store) WithLogger(l *logrus.Entry) *Store {
	return &Store{globalPath: s.globalPath, playerPath: s.playerPath, log: l}
}

func (s *Store) GlobalPath() string { return s.globalPath }
func (s *Store) PlayerPath() string { return s.playerPath }

// Load returns the weights that apply to key: the player's override when one
// exists, else the global weights, else the defaults. Missing factors are
// filled from the defaults.
func (s *Store) Load(key string) model.FactorWeights {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(key) != GlobalKey {
		players := s.loadPlayersLocked()
		if _, w, ok := lookup(players, key); ok {
			return w.WithDefaults()
		}
	}
	return s.loadGlobalLocked()
}

// LoadGlobal returns the global weights with defaults filled in.
func (s *Store) LoadGlobal() model.FactorWeights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadGlobalLocked()
}

// LoadPlayers returns every per-player override as stored.
func (s *Store) LoadPlayers() map[string]model.FactorWeights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPlayersLocked()
}

// HasOverride reports whether player has stored weights.
func (s *Store) HasOverride(player string) bool {
	_, _, ok := lookup(s.LoadPlayers(), player)
	return ok
}

// Players lists players with overrides, sorted.
func (s *Store) Players() []string {
	players := s.LoadPlayers()
	out := make([]string, 0, len(players))
	for p := range players {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Save writes weights for key. The global key replaces the global file; any
// other key is merged into the player file. Failures are logged and returned.
func (s *Store) Save(key string, w model.FactorWeights) error {
	if strings.TrimSpace(key) == GlobalKey {
		return s.SaveGlobal(w)
	}
	return s.SavePlayers(map[string]model.FactorWeights{key: w})
}

func (s *Store) SaveGlobal(w model.FactorWeights) error {
	if err := w.Validate(); err != nil {
		s.log.WithError(err).Error("refusing to save invalid global weights")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.globalPath, w); err != nil {
		s.log.WithError(err).WithField("path", s.globalPath).Error("failed to save global weights")
		return err
	}
	s.log.WithField("path", s.globalPath).Info("saved global weights")
	return nil
}

// SavePlayers merges updates into the stored player overrides. Existing
// entries match case-insensitively and keep their stored spelling.
func (s *Store) SavePlayers(updates map[string]model.FactorWeights) error {
	for p, w := range updates {
		if strings.TrimSpace(p) == "" {
			return errors.New("player name is empty")
		}
		if err := w.Validate(); err != nil {
			s.log.WithError(err).WithField("player", p).Error("refusing to save invalid weights")
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	players := s.loadPlayersLocked()
	for p, w := range updates {
		key := strings.TrimSpace(p)
		if existing, _, ok := lookup(players, p); ok {
			key = existing
		}
		players[key] = w.Clone()
	}

	if err := writeJSON(s.playerPath, players); err != nil {
		s.log.WithError(err).WithField("path", s.playerPath).Error("failed to save player weights")
		return err
	}
	s.log.WithFields(logrus.Fields{
		"path":    s.playerPath,
		"updated": len(updates),
		"total":   len(players),
	}).Info("saved player weights")
	return nil
}

// Reset removes player's override. Removing a missing override is a no-op.
func (s *Store) Reset(player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := s.loadPlayersLocked()
	key, _, ok := lookup(players, player)
	if !ok {
		return nil
	}
	delete(players, key)
	if err := writeJSON(s.playerPath, players); err != nil {
		s.log.WithError(err).WithField("path", s.playerPath).Error("failed to reset player weights")
		return err
	}
	s.log.WithField("player", key).Info("removed player weights")
	return nil
}

func (s *Store) loadGlobalLocked() model.FactorWeights {
	var w model.FactorWeights
	if !s.readJSON(s.globalPath, &w) || w == nil {
		return model.DefaultWeights()
	}
	if err := w.Validate(); err != nil {
		s.log.WithError(err).WithField("path", s.globalPath).Warn("invalid global weights, using defaults")
		return model.DefaultWeights()
	}
	return w.WithDefaults()
}

func (s *Store) loadPlayersLocked() map[string]model.FactorWeights {
	var players map[string]model.FactorWeights
	if !s.readJSON(s.playerPath, &players) || players == nil {
		return make(map[string]model.FactorWeights)
	}
	for p, w := range players {
		if err := w.Validate(); err != nil {
			s.log.WithError(err).WithField("player", p).Warn("dropping invalid player weights")
			delete(players, p)
		}
	}
	return players
}

// readJSON reports whether path held valid JSON decoded into v.
func (s *Store) readJSON(path string, v any) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", path).Warn("could not read weights file, using defaults")
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("corrupt weights file, using defaults")
		return false
	}
	return true
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod weights: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace weights file: %w", err)
	}
	return nil
}

func lookup(players map[string]model.FactorWeights, player string) (string, model.FactorWeights, bool) {
	want := strings.TrimSpace(player)
	if w, ok := players[want]; ok {
		return want, w, true
	}
	for k, w := range players {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			return k, w, true
		}
	}
	return "", nil, false
}
