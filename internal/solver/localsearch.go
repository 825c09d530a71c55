package solver

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/acadgrid/timetabler/pkg/model"
)

// tabuKey identifies one entity assignment: a lesson at a room and slot.
type tabuKey struct {
	lessonID uint64
	roomID   uint64
	slotID   uint64
}

// tabuList forbids revisiting an entity assignment for a fixed number of
// steps after it was abandoned.
type tabuList struct {
	tenure  int
	entries map[tabuKey]int
}

func newTabuList(tenure int) *tabuList {
	return &tabuList{tenure: tenure, entries: make(map[tabuKey]int)}
}

func (t *tabuList) add(key tabuKey, step int) {
	t.entries[key] = step
}

func (t *tabuList) contains(key tabuKey, step int) bool {
	added, tabooed := t.entries[key]
	if !tabooed {
		return false
	}
	if step-added > t.tenure {
		delete(t.entries, key)
		return false
	}
	return true
}

// candidate is one sampled move with its evaluated delta.
type candidate struct {
	mv    move
	delta model.Score
}

// snapshot freezes an assignment vector: one (room, slot) pair per lesson,
// parallel to the problem's lesson list.
type snapshot struct {
	score model.Score
	rooms []*model.Room
	slots []*model.TimeSlot
}

// localSearch iteratively explores neighboring assignments. The current
// state may worsen to escape local optima; the incumbent only ever improves
// and is the sole output.
type localSearch struct {
	tracker *tracker
	opts    Options
	rng     *rand.Rand

	tabu *tabuList
	late []model.Score
	step int

	incumbent snapshot
}

func newLocalSearch(t *tracker, opts Options, rng *rand.Rand) *localSearch {
	return &localSearch{
		tracker: t,
		opts:    opts,
		rng:     rng,
		tabu:    newTabuList(opts.TabuTenure),
	}
}

// run drives the step loop until the time budget expires, the context is
// cancelled, or a feasible incumbent is found with StopOnFeasible set. The
// termination check is polled once per step: an in-flight step always
// completes. On return the incumbent assignment has been restored into the
// problem's lessons.
func (s *localSearch) run(ctx context.Context) {
	deadline := time.Now().Add(s.opts.TimeBudget)

	s.late = make([]model.Score, s.opts.LateAcceptance)
	for i := range s.late {
		s.late[i] = s.tracker.score
	}
	s.incumbent = s.takeSnapshot()

	for {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		if s.opts.StopOnFeasible && s.incumbent.score.Feasible() {
			break
		}

		candidates := s.sample()
		s.evaluate(candidates)

		if chosen, accepted := s.selectCandidate(candidates); accepted {
			s.applyCandidate(chosen)
		}

		s.late[s.step%len(s.late)] = s.tracker.score
		s.step++
	}

	s.restoreIncumbent()
}

// sample draws a bounded neighborhood of ChangeMoves and type-compatible
// SwapMoves around the current assignment.
func (s *localSearch) sample() []candidate {
	problem := s.tracker.problem
	lessons := problem.Lessons
	if len(lessons) == 0 {
		return nil
	}

	candidates := make([]candidate, 0, s.opts.Neighborhood)
	for n := 0; n < s.opts.Neighborhood; n++ {
		if s.rng.Intn(4) == 0 && len(lessons) > 1 {
			a := lessons[s.rng.Intn(len(lessons))]
			b := lessons[s.rng.Intn(len(lessons))]
			if a != b && a.Type == b.Type && a.Assigned() && b.Assigned() {
				candidates = append(candidates, candidate{mv: swapMove(a, b)})
				continue
			}
		}

		lesson := lessons[s.rng.Intn(len(lessons))]
		room := problem.Rooms[s.rng.Intn(len(problem.Rooms))]
		slot := problem.Slots[s.rng.Intn(len(problem.Slots))]
		// A draw landing on the current assignment is redrawn rather than
		// dropped, so the neighborhood keeps its configured size.
		if lesson.Room == room && lesson.Slot == slot {
			switch {
			case len(problem.Slots) > 1:
				for slot == lesson.Slot {
					slot = problem.Slots[s.rng.Intn(len(problem.Slots))]
				}
			case len(problem.Rooms) > 1:
				for room == lesson.Room {
					room = problem.Rooms[s.rng.Intn(len(problem.Rooms))]
				}
			default:
				continue
			}
		}
		candidates = append(candidates, candidate{mv: changeMove(lesson, room, slot)})
	}
	return candidates
}

// evaluate computes every candidate's delta against the shared read-only
// tracker, fanned out over the worker pool. The WaitGroup is the barrier
// separating evaluation from application: mutation never overlaps it.
func (s *localSearch) evaluate(candidates []candidate) {
	workers := s.opts.Workers
	if workers <= 1 || len(candidates) < workers {
		for i := range candidates {
			candidates[i].delta = s.tracker.delta(candidates[i].mv)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(candidates) + workers - 1) / workers
	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		wg.Add(1)
		go func(slice []candidate) {
			defer wg.Done()
			for i := range slice {
				slice[i].delta = s.tracker.delta(slice[i].mv)
			}
		}(candidates[start:end])
	}
	wg.Wait()
}

// selectCandidate picks the admissible candidate with the best resulting
// score. A candidate is admissible when its target assignments are not tabu,
// or when its resulting score beats the late-acceptance threshold recorded
// LateAcceptance steps ago.
func (s *localSearch) selectCandidate(candidates []candidate) (candidate, bool) {
	threshold := s.late[s.step%len(s.late)]

	var best candidate
	var bestResulting model.Score
	accepted := false

	for _, c := range candidates {
		resulting := s.tracker.score.Add(c.delta)
		if s.isTabu(c.mv) && resulting.Compare(threshold) <= 0 {
			continue
		}
		if !accepted || resulting.Compare(bestResulting) > 0 {
			best, bestResulting, accepted = c, resulting, true
		}
	}
	return best, accepted
}

func (s *localSearch) isTabu(mv move) bool {
	for _, c := range mv.changes {
		if c.room == nil || c.slot == nil {
			continue
		}
		if s.tabu.contains(tabuKey{c.lesson.ID, c.room.ID, c.slot.ID}, s.step) {
			return true
		}
	}
	return false
}

// applyCandidate taboos the assignments being abandoned, commits the move
// and promotes the incumbent when the current state improved on it.
func (s *localSearch) applyCandidate(c candidate) {
	for _, ch := range c.mv.changes {
		if ch.lesson.Assigned() {
			s.tabu.add(tabuKey{ch.lesson.ID, ch.lesson.Room.ID, ch.lesson.Slot.ID}, s.step)
		}
	}

	s.tracker.apply(c.mv, c.delta)

	if s.tracker.score.Compare(s.incumbent.score) > 0 {
		s.incumbent = s.takeSnapshot()
	}
}

func (s *localSearch) takeSnapshot() snapshot {
	lessons := s.tracker.problem.Lessons
	frozen := snapshot{
		score: s.tracker.score,
		rooms: make([]*model.Room, len(lessons)),
		slots: make([]*model.TimeSlot, len(lessons)),
	}
	for i, lesson := range lessons {
		frozen.rooms[i] = lesson.Room
		frozen.slots[i] = lesson.Slot
	}
	return frozen
}

// restoreIncumbent writes the best seen assignment back into the lessons.
// The tracker is not updated: the search is over and the driver rescores
// from scratch.
func (s *localSearch) restoreIncumbent() {
	for i, lesson := range s.tracker.problem.Lessons {
		lesson.Room = s.incumbent.rooms[i]
		lesson.Slot = s.incumbent.slots[i]
	}
}
