package solver

import (
	"sort"

	"github.com/acadgrid/timetabler/pkg/model"
	"github.com/samber/lo"
)

// Constraint names as reported in the violation breakdown.
const (
	ConstraintRoomConflict       = "room conflict"
	ConstraintTeacherConflict    = "teacher conflict"
	ConstraintGroupConflict      = "student group conflict"
	ConstraintRoomCapacity       = "room capacity"
	ConstraintLabInNonLabRoom    = "lab session in non-lab room"
	ConstraintTheoryInLabRoom    = "theory session in lab room"
	ConstraintLabInNonLabSlot    = "lab session in non-lab slot"
	ConstraintTheoryInLabSlot    = "theory session in lab slot"
	ConstraintFullGroupBatched   = "full-group session batched"
	ConstraintOversizedUnbatched = "oversized lab unbatched"
	ConstraintPriorityMismatch   = "priority lab mismatch"
	ConstraintPriorityRank       = "priority lab rank"
	ConstraintWeeklyHours        = "teacher weekly hours"
	ConstraintWorkdaySpan        = "teacher workday span"
	ConstraintPairedBatchSlot    = "paired batches in different slots"
	ConstraintTimePreference     = "teacher time preference"
	ConstraintDailyLoad          = "teacher daily load"
	ConstraintCrossBlockTravel   = "cross-block travel"
	ConstraintConsecutiveReward  = "consecutive lessons"
	ConstraintLateClass          = "late class"
	ConstraintBlockPreference    = "department block preference"
	ConstraintWorkday            = "department workday"
	ConstraintUnassigned         = "unassigned lesson"
)

// Penalty weights and thresholds of the soft constraints.
const (
	offListPenalty          = 1000
	timePreferencePenalty   = 5
	travelPenalty           = 2
	morningCutoffHour       = 12
	lateClassHour           = 17
	workdaySpanLimitMinutes = 8 * 60
	dailyLoadLimitHours     = 6

	// Two slots on the same day are temporally adjacent when the break
	// between them is at most this long.
	maxAdjacentGapMinutes = 15
)

// emitFunc collects one weighted violation; nil when only the score is needed.
type emitFunc func(name string, hard bool, penalty int, lessons []uint64)

// placed pairs a lesson with an assignment, so candidate moves can be scored
// without mutating the lesson.
type placed struct {
	lesson *model.Lesson
	room   *model.Room
	slot   *model.TimeSlot
}

// evaluator is the constraint catalogue: pure scoring functions over
// assignment state, parameterized by the static configuration tables.
type evaluator struct {
	cfg *model.Config

	// course code -> room name -> 1-based priority rank
	rank map[string]map[string]int
}

func newEvaluator(cfg *model.Config) *evaluator {
	rank := make(map[string]map[string]int, len(cfg.PriorityLabs))
	for code, labs := range cfg.PriorityLabs {
		rank[code] = make(map[string]int, len(labs))
		for i, name := range labs {
			rank[code][name] = i + 1
		}
	}
	return &evaluator{cfg: cfg, rank: rank}
}

// lessonScore evaluates every single-lesson constraint against a hypothetical
// assignment. An unassigned lesson contributes only the unassigned penalty.
func (e *evaluator) lessonScore(l *model.Lesson, room *model.Room, slot *model.TimeSlot, emit emitFunc) model.Score {
	var score model.Score
	penalize := func(name string, hard bool, penalty int) {
		if hard {
			score.Hard -= penalty
		} else {
			score.Soft -= penalty
		}
		if emit != nil {
			emit(name, hard, penalty, []uint64{l.ID})
		}
	}

	theory := l.Type == model.Lecture || l.Type == model.Tutorial

	// Batching rules do not depend on the assignment.
	if theory && l.Batch != model.FullGroup {
		penalize(ConstraintFullGroupBatched, true, 1)
	}
	if l.Type == model.Lab && l.Batch == model.FullGroup &&
		l.Group.Size > e.cfg.LabBatchSize && !e.cfg.ExemptFromBatching(l.Course.Code) {
		penalize(ConstraintOversizedUnbatched, true, 1)
	}

	if room == nil || slot == nil {
		penalize(ConstraintUnassigned, true, 1)
		return score
	}

	if need := l.RequiredCapacity(e.cfg.LabBatchSize); room.Capacity < need {
		penalize(ConstraintRoomCapacity, true, need-room.Capacity)
	}

	if l.Type == model.Lab && !room.IsLab {
		penalize(ConstraintLabInNonLabRoom, true, 1)
	}
	if theory && room.IsLab {
		penalize(ConstraintTheoryInLabRoom, true, 1)
	}
	if l.Type == model.Lab && !slot.IsLab {
		penalize(ConstraintLabInNonLabSlot, true, 1)
	}
	if theory && slot.IsLab {
		penalize(ConstraintTheoryInLabSlot, true, 1)
	}

	// Priority lists govern lab-room choice only; theory sessions of a
	// mapped course are placed like any other.
	if l.Type == model.Lab && e.cfg.HasPriorityLabs(l.Course.Code) {
		if rank, listed := e.rank[l.Course.Code][room.Name]; !listed {
			penalize(ConstraintPriorityMismatch, false, offListPenalty)
		} else if rank > 1 {
			penalize(ConstraintPriorityRank, false, rank-1)
		}
	}

	if !e.cfg.AllowsDay(l.Group.Department, slot.Day) {
		penalize(ConstraintWorkday, true, 1)
	}
	if block, preferred := e.cfg.PreferredBlocks[l.Group.Department]; preferred && room.Block != block {
		penalize(ConstraintBlockPreference, false, 1)
	}

	if slot.StartHour() >= morningCutoffHour {
		penalize(ConstraintTimePreference, false, timePreferencePenalty)
	}
	if slot.StartHour() >= lateClassHour {
		penalize(ConstraintLateClass, false, 1)
	}

	return score
}

// pairScore evaluates the conflict-class constraints for one lesson pair
// under hypothetical assignments. Pairs with an unassigned side never
// conflict.
func (e *evaluator) pairScore(a, b placed, emit emitFunc) model.Score {
	var score model.Score
	if a.room == nil || a.slot == nil || b.room == nil || b.slot == nil {
		return score
	}
	penalize := func(name string) {
		score.Hard--
		if emit != nil {
			emit(name, true, 1, []uint64{a.lesson.ID, b.lesson.ID})
		}
	}

	if a.room == b.room && a.slot == b.slot {
		penalize(ConstraintRoomConflict)
	}
	if a.lesson.Teacher == b.lesson.Teacher && a.slot.Overlaps(b.slot) {
		penalize(ConstraintTeacherConflict)
	}
	if a.lesson.Group == b.lesson.Group && a.slot.Overlaps(b.slot) && batchesCollide(a.lesson, b.lesson) {
		penalize(ConstraintGroupConflict)
	}

	return score
}

// batchesCollide reports whether two same-group lessons compete for the same
// students: any full-group session collides with everything, batched sessions
// only with their own batch.
func batchesCollide(a, b *model.Lesson) bool {
	return a.Batch == model.FullGroup || b.Batch == model.FullGroup || a.Batch == b.Batch
}

// weeklyHoursScore charges the excess over a teacher's weekly budget.
// A zero budget means the teacher is exempt.
func (e *evaluator) weeklyHoursScore(teacher *model.Teacher, effectiveHours int, lessons []uint64, emit emitFunc) model.Score {
	var score model.Score
	if teacher.MaxWeeklyHours > 0 && effectiveHours > teacher.MaxWeeklyHours {
		excess := effectiveHours - teacher.MaxWeeklyHours
		score.Soft -= excess
		if emit != nil {
			emit(ConstraintWeeklyHours, false, excess, lessons)
		}
	}
	return score
}

// teacherDayScore evaluates the per-teacher per-day aggregates: workday span,
// daily load and cross-block travel.
func (e *evaluator) teacherDayScore(entries []placed, emit emitFunc) model.Score {
	var score model.Score
	// Unplaced entries never contribute, as in the pairwise constraints.
	entries = lo.Filter(entries, func(p placed, _ int) bool { return p.room != nil && p.slot != nil })
	if len(entries) == 0 {
		return score
	}

	sorted := sortedByStart(entries)
	ids := func() []uint64 {
		return lo.Map(sorted, func(p placed, _ int) uint64 { return p.lesson.ID })
	}

	first, last := sorted[0].slot.Start, sorted[0].slot.End
	hours := 0
	for _, entry := range sorted {
		first = min(first, entry.slot.Start)
		last = max(last, entry.slot.End)
		hours += model.EffectiveHours(entry.slot)
	}

	if span := last - first; span > workdaySpanLimitMinutes {
		excess := span - workdaySpanLimitMinutes
		score.Soft -= excess
		if emit != nil {
			emit(ConstraintWorkdaySpan, false, excess, ids())
		}
	}
	if hours > dailyLoadLimitHours {
		excess := hours - dailyLoadLimitHours
		score.Soft -= excess
		if emit != nil {
			emit(ConstraintDailyLoad, false, excess, ids())
		}
	}

	for i := 0; i < len(sorted)-1; i++ {
		for j := i + 1; j < len(sorted); j++ {
			if adjacent(sorted[i].slot, sorted[j].slot) && sorted[i].room.Block != sorted[j].room.Block {
				score.Soft -= travelPenalty
				if emit != nil {
					emit(ConstraintCrossBlockTravel, false, travelPenalty, []uint64{sorted[i].lesson.ID, sorted[j].lesson.ID})
				}
			}
		}
	}

	return score
}

// groupCourseDayScore rewards time-adjacent lessons of the same group and
// course on the same day.
func (e *evaluator) groupCourseDayScore(entries []placed, emit emitFunc) model.Score {
	var score model.Score
	entries = lo.Filter(entries, func(p placed, _ int) bool { return p.slot != nil })
	sorted := sortedByStart(entries)
	for i := 0; i < len(sorted)-1; i++ {
		for j := i + 1; j < len(sorted); j++ {
			if adjacent(sorted[i].slot, sorted[j].slot) {
				score.Soft++
				if emit != nil {
					emit(ConstraintConsecutiveReward, false, -1, []uint64{sorted[i].lesson.ID, sorted[j].lesson.ID})
				}
			}
		}
	}
	return score
}

// pairedBatchScore compares the k-th B1 lab against the k-th B2 lab of a
// course/group (both lists ordered by lesson id) and charges each pair not
// sharing a time slot.
func (e *evaluator) pairedBatchScore(b1, b2 []placed, emit emitFunc) model.Score {
	var score model.Score
	for k := 0; k < len(b1) && k < len(b2); k++ {
		if b1[k].slot == nil || b2[k].slot == nil {
			continue
		}
		if b1[k].slot != b2[k].slot {
			score.Soft--
			if emit != nil {
				emit(ConstraintPairedBatchSlot, false, 1, []uint64{b1[k].lesson.ID, b2[k].lesson.ID})
			}
		}
	}
	return score
}

// adjacent reports whether one slot starts within the allowed break after the
// other ends, on the same day.
func adjacent(a, b *model.TimeSlot) bool {
	if a.Day != b.Day {
		return false
	}
	if gap := b.Start - a.End; gap >= 0 && gap <= maxAdjacentGapMinutes {
		return true
	}
	gap := a.Start - b.End
	return gap >= 0 && gap <= maxAdjacentGapMinutes
}

func sortedByStart(entries []placed) []placed {
	sorted := make([]placed, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].slot.Start != sorted[j].slot.Start {
			return sorted[i].slot.Start < sorted[j].slot.Start
		}
		return sorted[i].lesson.ID < sorted[j].lesson.ID
	})
	return sorted
}

// rescore evaluates the full catalogue from scratch. It is the reference the
// incremental tracker must agree with; the search itself only calls it at
// phase boundaries.
func (e *evaluator) rescore(problem *model.Problem, collect bool) (model.Score, []model.Violation) {
	var violations []model.Violation
	var emit emitFunc
	if collect {
		emit = func(name string, hard bool, penalty int, lessons []uint64) {
			violations = append(violations, model.Violation{Constraint: name, Hard: hard, Lessons: lessons, Penalty: penalty})
		}
	}

	var total model.Score

	//** Single-lesson constraints
	for _, lesson := range problem.Lessons {
		total = total.Add(e.lessonScore(lesson, lesson.Room, lesson.Slot, emit))
	}

	//** Pairwise conflicts
	for i := 0; i < len(problem.Lessons)-1; i++ {
		for j := i + 1; j < len(problem.Lessons); j++ {
			a, b := problem.Lessons[i], problem.Lessons[j]
			total = total.Add(e.pairScore(placement(a), placement(b), emit))
		}
	}

	//** Per-teacher aggregates
	assigned := lo.Filter(problem.Lessons, func(l *model.Lesson, _ int) bool { return l.Slot != nil })
	byTeacher := lo.GroupBy(assigned, func(l *model.Lesson) uint64 { return l.Teacher.ID })
	for _, teacher := range problem.Teachers {
		lessons := byTeacher[teacher.ID]
		if len(lessons) == 0 {
			continue
		}
		hours := lo.SumBy(lessons, func(l *model.Lesson) int { return model.EffectiveHours(l.Slot) })
		ids := lo.Map(lessons, func(l *model.Lesson, _ int) uint64 { return l.ID })
		total = total.Add(e.weeklyHoursScore(teacher, hours, ids, emit))

		byDay := lo.GroupBy(lessons, func(l *model.Lesson) int { return int(l.Slot.Day) })
		days := lo.Keys(byDay)
		sort.Ints(days)
		for _, day := range days {
			entries := lo.Map(byDay[day], func(l *model.Lesson, _ int) placed { return placement(l) })
			total = total.Add(e.teacherDayScore(entries, emit))
		}
	}

	//** Per group+course aggregates, keyed in first-seen lesson order
	type groupCourse struct{ group, course uint64 }
	byGroupCourse := make(map[groupCourse][]*model.Lesson)
	var order []groupCourse
	for _, lesson := range problem.Lessons {
		key := groupCourse{lesson.Group.ID, lesson.Course.ID}
		if _, seen := byGroupCourse[key]; !seen {
			order = append(order, key)
		}
		byGroupCourse[key] = append(byGroupCourse[key], lesson)
	}
	for _, key := range order {
		lessons := byGroupCourse[key]

		assignedHere := lo.Filter(lessons, func(l *model.Lesson, _ int) bool { return l.Slot != nil })
		byDay := lo.GroupBy(assignedHere, func(l *model.Lesson) int { return int(l.Slot.Day) })
		days := lo.Keys(byDay)
		sort.Ints(days)
		for _, day := range days {
			entries := lo.Map(byDay[day], func(l *model.Lesson, _ int) placed { return placement(l) })
			total = total.Add(e.groupCourseDayScore(entries, emit))
		}

		b1 := batchLessons(lessons, model.BatchOne)
		b2 := batchLessons(lessons, model.BatchTwo)
		if len(b1) > 0 && len(b2) > 0 {
			total = total.Add(e.pairedBatchScore(b1, b2, emit))
		}
	}

	return total, violations
}

func placement(l *model.Lesson) placed {
	return placed{lesson: l, room: l.Room, slot: l.Slot}
}

// batchLessons extracts a batch's lessons ordered by id, assigned or not.
func batchLessons(lessons []*model.Lesson, batch model.LabBatch) []placed {
	selected := lo.Filter(lessons, func(l *model.Lesson, _ int) bool { return l.Batch == batch })
	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })
	return lo.Map(selected, func(l *model.Lesson, _ int) placed { return placement(l) })
}
