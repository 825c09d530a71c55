package model

import "fmt"

// Score is the lexicographic (hard, soft) pair. Violations accumulate
// negatively: a hard score of 0 means feasible, -3 means infeasible by three
// points. Soft score ranks among feasible solutions.
type Score struct {
	Hard int
	Soft int
}

func (s Score) Add(other Score) Score {
	return Score{Hard: s.Hard + other.Hard, Soft: s.Soft + other.Soft}
}

func (s Score) Sub(other Score) Score {
	return Score{Hard: s.Hard - other.Hard, Soft: s.Soft - other.Soft}
}

// Compare orders scores lexicographically: hard improvements always dominate
// soft improvements. Returns a positive value when s is better than other.
func (s Score) Compare(other Score) int {
	if s.Hard != other.Hard {
		return s.Hard - other.Hard
	}
	return s.Soft - other.Soft
}

// Feasible reports whether no hard constraint is violated.
func (s Score) Feasible() bool {
	return s.Hard == 0
}

func (s Score) String() string {
	return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft)
}

// Violation is one entry of the per-constraint breakdown reported alongside a
// solved timetable: the constraint that fired, its severity, the lessons
// involved and the (positive) penalty charged. Rewards carry a negative
// penalty.
type Violation struct {
	Constraint string
	Hard       bool
	Lessons    []uint64
	Penalty    int
}

func (v Violation) String() string {
	kind := "soft"
	if v.Hard {
		kind = "hard"
	}
	return fmt.Sprintf("[%s] %s: lessons %v, penalty %d", kind, v.Constraint, v.Lessons, v.Penalty)
}
