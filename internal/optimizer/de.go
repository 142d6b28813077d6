package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"fantasy-backtest/internal/metrics"
)

// Bounds is a closed interval for one search dimension.
type Bounds struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

func (b Bounds) Validate() error {
	if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) {
		return errors.New("bounds must be finite")
	}
	if b.Lower > b.Upper {
		return fmt.Errorf("lower bound %g above upper bound %g", b.Lower, b.Upper)
	}
	return nil
}

func (b Bounds) clamp(x float64) float64 {
	return math.Max(b.Lower, math.Min(b.Upper, x))
}

// Settings controls the differential evolution search.
type Settings struct {
	// PopSize multiplies the dimension count to give the population size.
	PopSize int `yaml:"popsize" json:"popsize"`
	MaxIter int `yaml:"maxiter" json:"maxiter"`

	// Convergence: std(energies) <= Atol + Tol*|mean(energies)|.
	Tol  float64 `yaml:"tol" json:"tol"`
	Atol float64 `yaml:"atol" json:"atol"`

	// The mutation factor is redrawn from [MutationMin, MutationMax) every generation.
	MutationMin   float64 `yaml:"mutation_min" json:"mutation_min"`
	MutationMax   float64 `yaml:"mutation_max" json:"mutation_max"`
	Recombination float64 `yaml:"recombination" json:"recombination"`

	Seed    int64 `yaml:"seed" json:"seed"`
	Workers int   `yaml:"workers" json:"workers"`

	// Polish refines the best member with Nelder-Mead inside the bounds.
	Polish            bool `yaml:"polish" json:"polish"`
	PolishEvaluations int  `yaml:"polish_evaluations" json:"polish_evaluations"`
}

func DefaultSettings() Settings {
	return Settings{
		PopSize:           10,
		MaxIter:           20,
		Tol:               0.01,
		Atol:              0,
		MutationMin:       0.5,
		MutationMax:       1.0,
		Recombination:     0.7,
		Seed:              42,
		Workers:           1,
		Polish:            true,
		PolishEvaluations: 1000,
	}
}

func (s Settings) Validate() error {
	if s.PopSize <= 0 {
		return errors.New("popsize must be > 0")
	}
	if s.MaxIter < 0 {
		return errors.New("maxiter must be >= 0")
	}
	if s.Tol < 0 || s.Atol < 0 {
		return errors.New("tol and atol must be >= 0")
	}
	if s.MutationMin < 0 || s.MutationMax > 2 || s.MutationMin > s.MutationMax {
		return errors.New("mutation must satisfy 0<=min<=max<=2")
	}
	if s.Recombination < 0 || s.Recombination > 1 {
		return errors.New("recombination must be in [0, 1]")
	}
	if s.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if s.Polish && s.PolishEvaluations <= 0 {
		return errors.New("polish_evaluations must be > 0 when polish is enabled")
	}
	return nil
}

// Objective is minimized. An error, panic or NaN counts as the worst possible
// value (+Inf) for that candidate.
type Objective func(x []float64) (float64, error)

// Result of a minimization.
type Result struct {
	X           []float64
	Fun         float64
	Iterations  int
	Evaluations int
	Failures    int
	Converged   bool
	Polished    bool
}

// minPopulation keeps best/1/bin supplied with distinct donors.
const minPopulation = 5

// polishPenalty stands in for +Inf inside Nelder-Mead, which needs finite values.
const polishPenalty = 1e10

// DifferentialEvolution minimizes obj over the box given by bounds using the
// best/1/bin strategy with Latin hypercube initialization and generation-
// synchronous updates. Identical inputs and Seed give identical results,
// regardless of Workers.
func DifferentialEvolution(ctx context.Context, obj Objective, bounds []Bounds, s Settings) (*Result, error) {
	if obj == nil {
		return nil, errors.New("objective is nil")
	}
	if len(bounds) == 0 {
		return nil, errors.New("no dimensions to search")
	}
	for i, b := range bounds {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("dimension %d: %w", i, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	n := len(bounds)
	np := s.PopSize * n
	if np < minPopulation {
		np = minPopulation
	}
	rng := rand.New(rand.NewSource(s.Seed))
	ev := &evaluator{obj: obj, bounds: bounds, workers: s.Workers}

	pop := latinHypercube(rng, np, n)
	energies := ev.evaluateAll(ctx, pop)
	best := floats.MinIdx(energies)

	res := &Result{}
	for gen := 1; gen <= s.MaxIter; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := s.MutationMin + rng.Float64()*(s.MutationMax-s.MutationMin)

		trials := make([][]float64, np)
		for i := range trials {
			trials[i] = best1bin(rng, pop, best, i, f, s.Recombination)
		}
		trialEnergies := ev.evaluateAll(ctx, trials)
		for i, e := range trialEnergies {
			if e < energies[i] {
				pop[i] = trials[i]
				energies[i] = e
			}
		}
		best = floats.MinIdx(energies)
		res.Iterations = gen

		if converged(energies, s.Tol, s.Atol) {
			res.Converged = true
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.X = ev.scale(pop[best])
	res.Fun = energies[best]

	if s.Polish {
		if x, fx, ok := ev.polish(ctx, res.X, s.PolishEvaluations); ok && fx < res.Fun {
			res.X = x
			res.Fun = fx
			res.Polished = true
		}
	}

	res.Evaluations = ev.evaluations
	res.Failures = ev.failures
	return res, nil
}

// latinHypercube places one sample in each of np equal strata per dimension,
// in unit space.
func latinHypercube(rng *rand.Rand, np, n int) [][]float64 {
	pop := make([][]float64, np)
	for i := range pop {
		pop[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		perm := rng.Perm(np)
		for i := 0; i < np; i++ {
			pop[perm[i]][j] = (float64(i) + rng.Float64()) / float64(np)
		}
	}
	return pop
}

// best1bin builds a trial vector for member i in unit space. Coordinates that
// leave [0, 1] are resampled uniformly.
func best1bin(rng *rand.Rand, pop [][]float64, best, i int, f, cr float64) []float64 {
	np, n := len(pop), len(pop[i])
	r0 := rng.Intn(np - 1)
	if r0 >= i {
		r0++
	}
	r1 := rng.Intn(np)
	for r1 == i || r1 == r0 {
		r1 = rng.Intn(np)
	}

	trial := make([]float64, n)
	copy(trial, pop[i])
	fill := rng.Intn(n)
	for j := 0; j < n; j++ {
		if j == fill || rng.Float64() < cr {
			trial[j] = pop[best][j] + f*(pop[r0][j]-pop[r1][j])
		}
	}
	for j := range trial {
		if trial[j] < 0 || trial[j] > 1 {
			trial[j] = rng.Float64()
		}
	}
	return trial
}

func converged(energies []float64, tol, atol float64) bool {
	for _, e := range energies {
		if math.IsInf(e, 0) || math.IsNaN(e) {
			return false
		}
	}
	mean, std := stat.PopMeanStdDev(energies, nil)
	return std <= atol+tol*math.Abs(mean)
}

type evaluator struct {
	obj     Objective
	bounds  []Bounds
	workers int

	evaluations int
	failures    int
}

// scale maps a unit-space vector onto the bounds.
func (e *evaluator) scale(u []float64) []float64 {
	x := make([]float64, len(u))
	for j, b := range e.bounds {
		x[j] = b.Lower + u[j]*(b.Upper-b.Lower)
	}
	return x
}

func (e *evaluator) clamp(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, b := range e.bounds {
		out[j] = b.clamp(x[j])
	}
	return out
}

func (e *evaluator) evaluateAll(ctx context.Context, unit [][]float64) []float64 {
	out := make([]float64, len(unit))
	failed := make([]bool, len(unit))

	if e.workers <= 1 {
		for i, u := range unit {
			if ctx.Err() != nil {
				out[i], failed[i] = math.Inf(1), false
				continue
			}
			out[i], failed[i] = call(e.obj, e.scale(u))
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.workers)
		for i, u := range unit {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, x []float64) {
				defer wg.Done()
				defer func() { <-sem }()
				if ctx.Err() != nil {
					out[i] = math.Inf(1)
					return
				}
				out[i], failed[i] = call(e.obj, x)
			}(i, e.scale(u))
		}
		wg.Wait()
	}

	e.evaluations += len(unit)
	for _, f := range failed {
		if f {
			e.failures++
		}
	}
	return out
}

func (e *evaluator) polish(ctx context.Context, x0 []float64, maxEvals int) ([]float64, float64, bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			e.evaluations++
			if ctx.Err() != nil {
				return polishPenalty
			}
			v, failed := call(e.obj, e.clamp(x))
			if failed {
				e.failures++
				return polishPenalty
			}
			return v
		},
	}
	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil || (err != nil && result.X == nil) {
		return nil, 0, false
	}
	if result.F >= polishPenalty || math.IsNaN(result.F) {
		return nil, 0, false
	}
	return e.clamp(result.X), result.F, true
}

// call evaluates obj, converting errors, panics and NaN to +Inf.
func call(obj Objective, x []float64) (v float64, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			v, failed = math.Inf(1), true
		}
		if failed {
			metrics.OptimizerEvaluationsTotal.WithLabelValues("failed").Inc()
		} else {
			metrics.OptimizerEvaluationsTotal.WithLabelValues("ok").Inc()
		}
	}()
	v, err := obj(x)
	if err != nil || math.IsNaN(v) {
		return math.Inf(1), true
	}
	return v, false
}
