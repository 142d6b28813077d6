package factor

import (
	"errors"
	"fmt"

	"fantasy-backtest/internal/model"
)

// Context is what a factor sees when scoring one player-game.
type Context struct {
	Player string
	Game   model.GameContext
}

// Scorer produces a bounded score for one player-game. Positive favors
// starting the player. Implementations must be pure functions of ctx.
type Scorer interface {
	Name() string
	Score(ctx Context) (float64, error)
}

// Describer is implemented by scorers that can explain themselves.
type Describer interface {
	Description() string
}

// Func adapts a plain function to Scorer.
type Func struct {
	FactorName string
	Desc       string
	Fn         func(ctx Context) (float64, error)
}

func (f Func) Name() string                       { return f.FactorName }
func (f Func) Description() string                { return f.Desc }
func (f Func) Score(ctx Context) (float64, error) { return f.Fn(ctx) }

// Provider is an ordered registry of scorers. Order is fixed at construction
// and defines the order composites are summed in.
type Provider struct {
	scorers []Scorer
	byName  map[string]Scorer
}

func NewProvider(scorers ...Scorer) (*Provider, error) {
	if len(scorers) == 0 {
		return nil, errors.New("provider needs at least one scorer")
	}
	p := &Provider{
		scorers: make([]Scorer, 0, len(scorers)),
		byName:  make(map[string]Scorer, len(scorers)),
	}
	for _, s := range scorers {
		if s == nil {
			return nil, errors.New("nil scorer")
		}
		name := s.Name()
		if name == "" {
			return nil, errors.New("scorer with empty name")
		}
		if _, dup := p.byName[name]; dup {
			return nil, fmt.Errorf("duplicate scorer %q", name)
		}
		p.scorers = append(p.scorers, s)
		p.byName[name] = s
	}
	return p, nil
}

// Baseline returns the provider with every built-in heuristic.
func Baseline() *Provider {
	p, err := NewProvider(baselineScorers()...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Names() []string {
	out := make([]string, len(p.scorers))
	for i, s := range p.scorers {
		out[i] = s.Name()
	}
	return out
}

func (p *Provider) Scorers() []Scorer {
	out := make([]Scorer, len(p.scorers))
	copy(out, p.scorers)
	return out
}

func (p *Provider) Lookup(name string) (Scorer, bool) {
	s, ok := p.byName[name]
	return s, ok
}

func (p *Provider) Len() int { return len(p.scorers) }

// Info describes a registered factor for listings.
type Info struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	DefaultWeight float64 `json:"default_weight"`
}

func (p *Provider) Describe() []Info {
	out := make([]Info, 0, len(p.scorers))
	for _, s := range p.scorers {
		info := Info{Name: s.Name(), DefaultWeight: model.DefaultWeightFor(s.Name())}
		if d, ok := s.(Describer); ok {
			info.Description = d.Description()
		}
		out = append(out, info)
	}
	return out
}
