package model

import (
	"fmt"

	"github.com/samber/lo"
)

// Problem owns the full immutable fact lists, the mutable lesson list and
// the configuration tables. It is constructed once per run with all lessons
// unassigned and mutated in place through the search.
type Problem struct {
	Rooms    []*Room
	Slots    []*TimeSlot
	Teachers []*Teacher
	Courses  []*Course
	Groups   []*StudentGroup
	Lessons  []*Lesson
	Config   *Config
}

// Validate fails fast on broken referential integrity and on lessons that
// break the session/batch invariants. Malformed rows are the loader's
// responsibility; by the time a Problem exists its facts must be coherent.
func (p *Problem) Validate() error {
	if p.Config == nil {
		return fmt.Errorf("problem has no configuration")
	}
	if len(p.Rooms) == 0 || len(p.Slots) == 0 {
		return fmt.Errorf("problem needs at least one room and one time slot")
	}

	rooms := lo.KeyBy(p.Rooms, func(r *Room) uint64 { return r.ID })
	slots := lo.KeyBy(p.Slots, func(s *TimeSlot) uint64 { return s.ID })
	teachers := lo.KeyBy(p.Teachers, func(t *Teacher) uint64 { return t.ID })
	courses := lo.KeyBy(p.Courses, func(c *Course) uint64 { return c.ID })
	groups := lo.KeyBy(p.Groups, func(g *StudentGroup) uint64 { return g.ID })

	seen := make(map[uint64]bool, len(p.Lessons))
	for _, lesson := range p.Lessons {
		if seen[lesson.ID] {
			return fmt.Errorf("duplicate lesson id %d", lesson.ID)
		}
		seen[lesson.ID] = true

		if lesson.Teacher == nil || teachers[lesson.Teacher.ID] != lesson.Teacher {
			return fmt.Errorf("lesson %d references an unknown teacher", lesson.ID)
		}
		if lesson.Course == nil || courses[lesson.Course.ID] != lesson.Course {
			return fmt.Errorf("lesson %d references an unknown course", lesson.ID)
		}
		if lesson.Group == nil || groups[lesson.Group.ID] != lesson.Group {
			return fmt.Errorf("lesson %d references an unknown student group", lesson.ID)
		}
		if lesson.Room != nil && rooms[lesson.Room.ID] != lesson.Room {
			return fmt.Errorf("lesson %d references an unknown room", lesson.ID)
		}
		if lesson.Slot != nil && slots[lesson.Slot.ID] != lesson.Slot {
			return fmt.Errorf("lesson %d references an unknown time slot", lesson.ID)
		}

		switch lesson.Type {
		case Lecture, Tutorial:
			if lesson.Batch != FullGroup {
				return fmt.Errorf("lesson %d: %s sessions cannot be batched", lesson.ID, lesson.Type)
			}
		case Lab:
			if lesson.Batch != FullGroup && lesson.Batch != BatchOne && lesson.Batch != BatchTwo {
				return fmt.Errorf("lesson %d: unknown lab batch %q", lesson.ID, lesson.Batch)
			}
		default:
			return fmt.Errorf("lesson %d: unknown session type %q", lesson.ID, lesson.Type)
		}
	}

	return nil
}

// Solution is the terminal snapshot of a solved problem: the lesson list
// with planning fields populated, the final score and the per-constraint
// breakdown for diagnostic reporting.
type Solution struct {
	Problem    *Problem
	Score      Score
	Violations []Violation
}

// Feasible reports whether the solution violates no hard constraint.
func (s *Solution) Feasible() bool {
	return s.Score.Feasible()
}

// Unassigned returns the lessons left without a room or slot. A complete
// construction phase leaves this empty.
func (s *Solution) Unassigned() []*Lesson {
	return lo.Filter(s.Problem.Lessons, func(l *Lesson, _ int) bool { return !l.Assigned() })
}
