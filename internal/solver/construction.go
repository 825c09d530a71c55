package solver

import (
	"math"
	"sort"

	"github.com/acadgrid/timetabler/pkg/model"
	"github.com/samber/lo"
)

// construct builds an initial complete assignment: hardest-to-place lessons
// first, each committed to the (room, slot) pair with the best immediate
// delta. No lesson is skipped; when no conflict-free pair exists the least
// harmful one is committed anyway. Completeness is guaranteed, feasibility
// is not.
func construct(t *tracker) {
	problem := t.problem

	unassigned := lo.Filter(problem.Lessons, func(l *model.Lesson, _ int) bool { return !l.Assigned() })
	sort.SliceStable(unassigned, func(i, j int) bool {
		a, b := unassigned[i], unassigned[j]
		constrainedA, constrainedB := t.hardToPlace(a), t.hardToPlace(b)
		if constrainedA != constrainedB {
			return constrainedA
		}
		capacityA := a.RequiredCapacity(t.eval.cfg.LabBatchSize)
		capacityB := b.RequiredCapacity(t.eval.cfg.LabBatchSize)
		// Stable sort keeps insertion order on full ties.
		return capacityA > capacityB
	})

	for _, lesson := range unassigned {
		var best move
		var bestDelta model.Score
		bestRank := math.MaxInt
		found := false

		for _, room := range problem.Rooms {
			for _, slot := range problem.Slots {
				mv := changeMove(lesson, room, slot)
				delta := t.delta(mv)
				rank := t.priorityRank(lesson, room)

				if !found ||
					delta.Compare(bestDelta) > 0 ||
					(delta.Compare(bestDelta) == 0 && rank < bestRank) {
					best, bestDelta, bestRank, found = mv, delta, rank, true
				}
			}
		}

		t.apply(best, bestDelta)
	}
}

// hardToPlace marks the lessons with the fewest legal rooms: batched lab
// sessions and lab sessions bound to a priority lab list.
func (t *tracker) hardToPlace(l *model.Lesson) bool {
	return l.Batch != model.FullGroup ||
		(l.Type == model.Lab && t.eval.cfg.HasPriorityLabs(l.Course.Code))
}

// priorityRank orders rooms by the course's priority lab list for
// tie-breaking lab placements: listed rooms by rank, off-list rooms of a
// mapped course last. Theory sessions and unmapped courses rank all rooms
// equal.
func (t *tracker) priorityRank(l *model.Lesson, room *model.Room) int {
	if l.Type != model.Lab || !t.eval.cfg.HasPriorityLabs(l.Course.Code) {
		return 0
	}
	if rank, listed := t.eval.rank[l.Course.Code][room.Name]; listed {
		return rank
	}
	return math.MaxInt - 1
}
