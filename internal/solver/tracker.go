package solver

import (
	"sort"
	"time"

	"github.com/acadgrid/timetabler/pkg/model"
)

// Bucket keys of the conflict indices.
type roomSlotKey struct {
	roomID uint64
	slotID uint64
}

type teacherDayKey struct {
	teacherID uint64
	day       time.Weekday
}

type groupDayKey struct {
	groupID uint64
	day     time.Weekday
}

type groupCourseKey struct {
	groupID  uint64
	courseID uint64
}

type groupCourseDayKey struct {
	groupID  uint64
	courseID uint64
	day      time.Weekday
}

// change reassigns one lesson's planning fields.
type change struct {
	lesson *model.Lesson
	room   *model.Room
	slot   *model.TimeSlot
}

// move is one or two changes applied atomically: a single reassignment or a
// pairwise swap.
type move struct {
	changes []change
}

func changeMove(lesson *model.Lesson, room *model.Room, slot *model.TimeSlot) move {
	return move{changes: []change{{lesson: lesson, room: room, slot: slot}}}
}

func swapMove(a, b *model.Lesson) move {
	return move{changes: []change{
		{lesson: a, room: b.Room, slot: b.Slot},
		{lesson: b, room: a.Room, slot: a.Slot},
	}}
}

// tracker maintains the conflict indices over the current assignment so a
// candidate move can be scored in (amortized) constant time instead of a full
// rescore. Deltas are computed read-only; apply is the only mutator and runs
// on the driver goroutine.
type tracker struct {
	eval    *evaluator
	problem *model.Problem

	byRoomSlot   map[roomSlotKey][]*model.Lesson
	byTeacherDay map[teacherDayKey][]*model.Lesson
	byGroupDay   map[groupDayKey][]*model.Lesson

	// effective weekly teaching hours per teacher, assigned lessons only
	teacherEff map[uint64]int

	// static id-ordered B1/B2 lab lessons per group+course
	batches map[groupCourseKey][2][]*model.Lesson

	teachers map[uint64]*model.Teacher

	score model.Score
}

func newTracker(eval *evaluator, problem *model.Problem) *tracker {
	t := &tracker{
		eval:         eval,
		problem:      problem,
		byRoomSlot:   make(map[roomSlotKey][]*model.Lesson),
		byTeacherDay: make(map[teacherDayKey][]*model.Lesson),
		byGroupDay:   make(map[groupDayKey][]*model.Lesson),
		teacherEff:   make(map[uint64]int),
		batches:      make(map[groupCourseKey][2][]*model.Lesson),
		teachers:     make(map[uint64]*model.Teacher),
	}

	for _, teacher := range problem.Teachers {
		t.teachers[teacher.ID] = teacher
	}
	for _, lesson := range problem.Lessons {
		if lesson.Batch == model.FullGroup {
			continue
		}
		key := groupCourseKey{lesson.Group.ID, lesson.Course.ID}
		pair := t.batches[key]
		if lesson.Batch == model.BatchOne {
			pair[0] = append(pair[0], lesson)
		} else {
			pair[1] = append(pair[1], lesson)
		}
		t.batches[key] = pair
	}
	for key, pair := range t.batches {
		for i := range pair {
			sort.Slice(pair[i], func(a, b int) bool { return pair[i][a].ID < pair[i][b].ID })
		}
		t.batches[key] = pair
	}

	for _, lesson := range problem.Lessons {
		if lesson.Assigned() {
			t.insert(lesson)
		}
	}
	t.score, _ = eval.rescore(problem, false)
	return t
}

func (t *tracker) insert(l *model.Lesson) {
	key := roomSlotKey{l.Room.ID, l.Slot.ID}
	t.byRoomSlot[key] = append(t.byRoomSlot[key], l)

	td := teacherDayKey{l.Teacher.ID, l.Slot.Day}
	t.byTeacherDay[td] = append(t.byTeacherDay[td], l)

	gd := groupDayKey{l.Group.ID, l.Slot.Day}
	t.byGroupDay[gd] = append(t.byGroupDay[gd], l)

	t.teacherEff[l.Teacher.ID] += model.EffectiveHours(l.Slot)
}

func (t *tracker) remove(l *model.Lesson) {
	key := roomSlotKey{l.Room.ID, l.Slot.ID}
	t.byRoomSlot[key] = removeLesson(t.byRoomSlot[key], l)

	td := teacherDayKey{l.Teacher.ID, l.Slot.Day}
	t.byTeacherDay[td] = removeLesson(t.byTeacherDay[td], l)

	gd := groupDayKey{l.Group.ID, l.Slot.Day}
	t.byGroupDay[gd] = removeLesson(t.byGroupDay[gd], l)

	t.teacherEff[l.Teacher.ID] -= model.EffectiveHours(l.Slot)
}

func removeLesson(bucket []*model.Lesson, l *model.Lesson) []*model.Lesson {
	for i, candidate := range bucket {
		if candidate == l {
			bucket[i] = bucket[len(bucket)-1]
			return bucket[:len(bucket)-1]
		}
	}
	return bucket
}

// delta computes the score change a move would cause, without mutating any
// state. It rescopes the evaluation to the contributions the move can touch:
// the moved lessons' unary terms, pairwise terms against the occupants of the
// old and new index buckets, and the aggregates of the affected keys. The
// result must equal the full-rescore difference; tests enforce that.
func (t *tracker) delta(mv move) model.Score {
	moved := make(map[*model.Lesson]change, len(mv.changes))
	for _, c := range mv.changes {
		moved[c.lesson] = c
	}

	var before, after model.Score

	//** Unary terms
	for _, c := range mv.changes {
		before = before.Add(t.eval.lessonScore(c.lesson, c.lesson.Room, c.lesson.Slot, nil))
		after = after.Add(t.eval.lessonScore(c.lesson, c.room, c.slot, nil))
	}

	//** Pairwise terms against unmoved occupants of affected buckets
	others := make(map[*model.Lesson]struct{})
	collect := func(bucket []*model.Lesson) {
		for _, l := range bucket {
			if _, isMoved := moved[l]; !isMoved {
				others[l] = struct{}{}
			}
		}
	}
	for _, c := range mv.changes {
		l := c.lesson
		if l.Assigned() {
			collect(t.byRoomSlot[roomSlotKey{l.Room.ID, l.Slot.ID}])
			collect(t.byTeacherDay[teacherDayKey{l.Teacher.ID, l.Slot.Day}])
			collect(t.byGroupDay[groupDayKey{l.Group.ID, l.Slot.Day}])
		}
		if c.room != nil && c.slot != nil {
			collect(t.byRoomSlot[roomSlotKey{c.room.ID, c.slot.ID}])
			collect(t.byTeacherDay[teacherDayKey{l.Teacher.ID, c.slot.Day}])
			collect(t.byGroupDay[groupDayKey{l.Group.ID, c.slot.Day}])
		}
	}
	for other := range others {
		op := placement(other)
		for _, c := range mv.changes {
			before = before.Add(t.eval.pairScore(placement(c.lesson), op, nil))
			after = after.Add(t.eval.pairScore(placed{c.lesson, c.room, c.slot}, op, nil))
		}
	}

	//** Pairwise terms inside the move (swap)
	for i := 0; i < len(mv.changes)-1; i++ {
		for j := i + 1; j < len(mv.changes); j++ {
			a, b := mv.changes[i], mv.changes[j]
			before = before.Add(t.eval.pairScore(placement(a.lesson), placement(b.lesson), nil))
			after = after.Add(t.eval.pairScore(placed{a.lesson, a.room, a.slot}, placed{b.lesson, b.room, b.slot}, nil))
		}
	}

	//** Teacher weekly budgets
	effDelta := make(map[uint64]int)
	for _, c := range mv.changes {
		effDelta[c.lesson.Teacher.ID] += model.EffectiveHours(c.slot) - model.EffectiveHours(c.lesson.Slot)
	}
	for teacherID := range effDelta {
		teacher := t.teachers[teacherID]
		current := t.teacherEff[teacherID]
		before = before.Add(t.eval.weeklyHoursScore(teacher, current, nil, nil))
		after = after.Add(t.eval.weeklyHoursScore(teacher, current+effDelta[teacherID], nil, nil))
	}

	//** Teacher-day aggregates
	teacherDays := make(map[teacherDayKey]struct{})
	for _, c := range mv.changes {
		if c.lesson.Slot != nil {
			teacherDays[teacherDayKey{c.lesson.Teacher.ID, c.lesson.Slot.Day}] = struct{}{}
		}
		if c.slot != nil {
			teacherDays[teacherDayKey{c.lesson.Teacher.ID, c.slot.Day}] = struct{}{}
		}
	}
	for key := range teacherDays {
		before = before.Add(t.eval.teacherDayScore(t.teacherDayEntries(key, moved, false), nil))
		after = after.Add(t.eval.teacherDayScore(t.teacherDayEntries(key, moved, true), nil))
	}

	//** Group+course day aggregates (consecutive-lesson reward)
	groupCourseDays := make(map[groupCourseDayKey]struct{})
	for _, c := range mv.changes {
		if c.lesson.Slot != nil {
			groupCourseDays[groupCourseDayKey{c.lesson.Group.ID, c.lesson.Course.ID, c.lesson.Slot.Day}] = struct{}{}
		}
		if c.slot != nil {
			groupCourseDays[groupCourseDayKey{c.lesson.Group.ID, c.lesson.Course.ID, c.slot.Day}] = struct{}{}
		}
	}
	for key := range groupCourseDays {
		before = before.Add(t.eval.groupCourseDayScore(t.groupCourseDayEntries(key, moved, false), nil))
		after = after.Add(t.eval.groupCourseDayScore(t.groupCourseDayEntries(key, moved, true), nil))
	}

	//** Paired-batch slots
	groupCourses := make(map[groupCourseKey]struct{})
	for _, c := range mv.changes {
		if c.lesson.Batch != model.FullGroup {
			groupCourses[groupCourseKey{c.lesson.Group.ID, c.lesson.Course.ID}] = struct{}{}
		}
	}
	for key := range groupCourses {
		pair := t.batches[key]
		before = before.Add(t.eval.pairedBatchScore(overlayEntries(pair[0], moved, false), overlayEntries(pair[1], moved, false), nil))
		after = after.Add(t.eval.pairedBatchScore(overlayEntries(pair[0], moved, true), overlayEntries(pair[1], moved, true), nil))
	}

	return after.Sub(before)
}

// teacherDayEntries rebuilds the lesson set of one teacher-day key, with the
// moved lessons relocated when after is true.
func (t *tracker) teacherDayEntries(key teacherDayKey, moved map[*model.Lesson]change, after bool) []placed {
	var entries []placed
	for _, l := range t.byTeacherDay[key] {
		if _, isMoved := moved[l]; isMoved {
			continue
		}
		entries = append(entries, placement(l))
	}
	for l, c := range moved {
		if l.Teacher.ID != key.teacherID {
			continue
		}
		if after {
			if c.slot != nil && c.slot.Day == key.day {
				entries = append(entries, placed{l, c.room, c.slot})
			}
		} else if l.Slot != nil && l.Slot.Day == key.day {
			entries = append(entries, placement(l))
		}
	}
	return entries
}

func (t *tracker) groupCourseDayEntries(key groupCourseDayKey, moved map[*model.Lesson]change, after bool) []placed {
	var entries []placed
	for _, l := range t.byGroupDay[groupDayKey{key.groupID, key.day}] {
		if _, isMoved := moved[l]; isMoved {
			continue
		}
		if l.Course.ID == key.courseID {
			entries = append(entries, placement(l))
		}
	}
	for l, c := range moved {
		if l.Group.ID != key.groupID || l.Course.ID != key.courseID {
			continue
		}
		if after {
			if c.slot != nil && c.slot.Day == key.day {
				entries = append(entries, placed{l, c.room, c.slot})
			}
		} else if l.Slot != nil && l.Slot.Day == key.day {
			entries = append(entries, placement(l))
		}
	}
	return entries
}

// overlayEntries maps a static batch list to placements, substituting the
// moved lessons' candidate assignments when after is true.
func overlayEntries(lessons []*model.Lesson, moved map[*model.Lesson]change, after bool) []placed {
	entries := make([]placed, 0, len(lessons))
	for _, l := range lessons {
		if c, isMoved := moved[l]; isMoved && after {
			entries = append(entries, placed{l, c.room, c.slot})
			continue
		}
		entries = append(entries, placement(l))
	}
	return entries
}

// apply commits a move whose delta has already been computed. Must only run
// on the driver goroutine, never concurrently with delta evaluation.
func (t *tracker) apply(mv move, delta model.Score) {
	for _, c := range mv.changes {
		if c.lesson.Assigned() {
			t.remove(c.lesson)
		}
		c.lesson.Room, c.lesson.Slot = c.room, c.slot
		if c.lesson.Assigned() {
			t.insert(c.lesson)
		}
	}
	t.score = t.score.Add(delta)
}
