// Package solver turns an unassigned timetabling problem into a scored
// solution: a construction heuristic builds a complete assignment, then a
// tabu/late-acceptance local search improves it under an incremental scorer.
package solver

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"github.com/acadgrid/timetabler/pkg/model"
)

// Options tune the metaheuristic. Zero values fall back to defaults.
type Options struct {
	// TimeBudget bounds the local-search phase wall-clock time.
	TimeBudget time.Duration
	// Neighborhood is the number of candidate moves sampled per step.
	Neighborhood int
	// TabuTenure is the number of steps an abandoned assignment stays tabu.
	TabuTenure int
	// LateAcceptance is the length of the late-acceptance score window.
	LateAcceptance int
	// Workers sizes the delta-evaluation pool; defaults to the host's CPUs.
	Workers int
	// Seed makes runs reproducible; 0 seeds from the clock.
	Seed int64
	// StopOnFeasible halts as soon as the incumbent reaches hard score 0.
	StopOnFeasible bool
}

func (o Options) withDefaults() Options {
	if o.TimeBudget <= 0 {
		o.TimeBudget = 30 * time.Second
	}
	if o.Neighborhood <= 0 {
		o.Neighborhood = 64
	}
	if o.TabuTenure <= 0 {
		o.TabuTenure = 16
	}
	if o.LateAcceptance <= 0 {
		o.LateAcceptance = 64
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Solver assigns rooms and time slots to every lesson of a problem. An
// unsatisfiable instance is not an error: the best incumbent is returned
// with its (negative) hard score and callers classify the run themselves.
type Solver interface {
	Solve(ctx context.Context, problem *model.Problem) (*model.Solution, error)
}

func New(opts Options) Solver {
	return &heuristicSolver{opts: opts.withDefaults()}
}

type heuristicSolver struct {
	opts Options
}

func (s *heuristicSolver) Solve(ctx context.Context, problem *model.Problem) (*model.Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	problem.Config.Normalize()

	evaluator := newEvaluator(problem.Config)
	tracker := newTracker(evaluator, problem)

	//** Phase 1: construction
	construct(tracker)

	//** Phase 2: local search
	rng := rand.New(rand.NewSource(s.opts.Seed))
	search := newLocalSearch(tracker, s.opts, rng)
	search.run(ctx)

	//** Final full rescore with breakdown
	score, violations := evaluator.rescore(problem, true)
	return &model.Solution{Problem: problem, Score: score, Violations: violations}, nil
}
