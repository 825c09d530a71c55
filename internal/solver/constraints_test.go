package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acadgrid/timetabler/pkg/model"
)

// collector accumulates emitted violations for assertions.
func collector(violations *[]model.Violation) emitFunc {
	return func(name string, hard bool, penalty int, lessons []uint64) {
		*violations = append(*violations, model.Violation{Constraint: name, Hard: hard, Penalty: penalty, Lessons: lessons})
	}
}

func TestOverlappingTeacherLessons(t *testing.T) {
	//** Arrange
	f := newFixture()
	a := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	b := f.addLesson(2, "t1", "ma201", "g2", model.Lecture, model.FullGroup)
	f.assign(a, "R1", "mon9")
	f.assign(b, "R2", "mon930")

	//** Act
	_, violations := f.evaluator().rescore(f.problem, true)

	//** Assert
	assert.Equal(t, 1, countViolations(violations, ConstraintTeacherConflict))
	assert.Equal(t, 0, countViolations(violations, ConstraintRoomConflict))
}

func TestRoomConflictNeedsIdenticalSlot(t *testing.T) {
	//** Arrange
	f := newFixture()
	a := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	b := f.addLesson(2, "t2", "ma201", "g2", model.Lecture, model.FullGroup)
	f.assign(a, "R1", "mon9")
	f.assign(b, "R1", "mon9")

	//** Act
	_, violations := f.evaluator().rescore(f.problem, true)

	//** Assert
	assert.Equal(t, 1, countViolations(violations, ConstraintRoomConflict))

	// Overlapping but distinct slots do not contest the room.
	f.assign(b, "R1", "mon930")
	_, violations = f.evaluator().rescore(f.problem, true)
	assert.Equal(t, 0, countViolations(violations, ConstraintRoomConflict))
}

func TestGroupConflictBatchSemantics(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()

	b1 := f.addLesson(1, "t1", "cs102", "g1", model.Lab, model.BatchOne)
	b2 := f.addLesson(2, "t2", "cs102", "g1", model.Lab, model.BatchTwo)
	full := f.addLesson(3, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	f.assign(b1, "L1", "monLab8")
	f.assign(b2, "L3", "monLab8")
	f.assign(full, "R1", "mon8")

	t.Run("Disjoint batches may run in parallel", func(t *testing.T) {
		score := eval.pairScore(placement(b1), placement(b2), nil)
		assert.Equal(t, 0, score.Hard)
	})

	t.Run("Full-group session collides with a batch", func(t *testing.T) {
		var violations []model.Violation
		eval.pairScore(placement(b1), placement(full), collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintGroupConflict))
	})

	t.Run("Same batch collides with itself", func(t *testing.T) {
		other := f.addLesson(4, "t2", "cs102", "g1", model.Lab, model.BatchOne)
		f.assign(other, "L3", "monLab8")
		var violations []model.Violation
		eval.pairScore(placement(b1), placement(other), collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintGroupConflict))
	})
}

func TestPriorityLabScoring(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	lesson := f.addLesson(1, "t1", "cs102", "g1", model.Lab, model.BatchOne)

	t.Run("First-ranked lab is free", func(t *testing.T) {
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L1"], f.slots["tueLab8"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityMismatch))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityRank))
	})

	t.Run("Second-ranked lab costs its rank", func(t *testing.T) {
		var violations []model.Violation
		score := eval.lessonScore(lesson, f.rooms["L3"], f.slots["tueLab8"], collector(&violations))
		assert.Equal(t, 1, violationPenalty(violations, ConstraintPriorityRank))
		assert.Equal(t, -1, score.Soft)
	})

	t.Run("Off-list lab is heavily penalized", func(t *testing.T) {
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L2"], f.slots["tueLab8"], collector(&violations))
		assert.Equal(t, 1000, violationPenalty(violations, ConstraintPriorityMismatch))
	})

	t.Run("Theory sessions of a mapped course are exempt", func(t *testing.T) {
		// The list governs lab-room choice; a lecture of CS102 in an
		// ordinary theory room must stay penalty-free.
		lecture := f.addLesson(3, "t1", "cs102", "g1", model.Lecture, model.FullGroup)
		var violations []model.Violation
		score := eval.lessonScore(lecture, f.rooms["R1"], f.slots["mon8"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityMismatch))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityRank))
		assert.Equal(t, model.Score{}, score)
	})

	t.Run("Unmapped course uses any lab for free", func(t *testing.T) {
		other := f.addLesson(2, "t1", "ma201", "g2", model.Lab, model.FullGroup)
		var violations []model.Violation
		eval.lessonScore(other, f.rooms["L2"], f.slots["tueLab8"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityMismatch))
		assert.Equal(t, 0, countViolations(violations, ConstraintPriorityRank))
	})
}

func TestBatchingRules(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()

	t.Run("Oversized lab left unbatched", func(t *testing.T) {
		// Group of 60 against a batch threshold of 35.
		lesson := f.addLesson(1, "t1", "cs102", "g1", model.Lab, model.FullGroup)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L1"], f.slots["monLab8"], collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintOversizedUnbatched))
	})

	t.Run("Small group lab needs no batching", func(t *testing.T) {
		lesson := f.addLesson(2, "t1", "cs102", "g2", model.Lab, model.FullGroup)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L1"], f.slots["monLab8"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintOversizedUnbatched))
	})

	t.Run("Theory session cannot be batched", func(t *testing.T) {
		lesson := f.addLesson(3, "t1", "cs101", "g1", model.Lecture, model.BatchOne)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon8"], collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintFullGroupBatched))
	})

	t.Run("Batching rules fire even while unassigned", func(t *testing.T) {
		lesson := f.addLesson(4, "t1", "cs102", "g1", model.Lab, model.FullGroup)
		var violations []model.Violation
		eval.lessonScore(lesson, nil, nil, collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintOversizedUnbatched))
		assert.Equal(t, 1, countViolations(violations, ConstraintUnassigned))
	})
}

func TestDepartmentWorkday(t *testing.T) {
	//** Arrange: MATH runs Tuesday through Saturday.
	f := newFixture()
	eval := f.evaluator()
	lesson := f.addLesson(1, "t1", "ma201", "g2", model.Lecture, model.FullGroup)

	//** Act
	var monday, tuesday []model.Violation
	eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon9"], collector(&monday))
	eval.lessonScore(lesson, f.rooms["R1"], f.slots["tue9"], collector(&tuesday))

	//** Assert
	assert.Equal(t, 1, countViolations(monday, ConstraintWorkday))
	assert.Equal(t, 0, countViolations(tuesday, ConstraintWorkday))
}

func TestRoomAndSlotTyping(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()

	t.Run("Lab session in theory room and slot", func(t *testing.T) {
		lesson := f.addLesson(1, "t1", "cs102", "g1", model.Lab, model.BatchOne)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon8"], collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintLabInNonLabRoom))
		assert.Equal(t, 1, countViolations(violations, ConstraintLabInNonLabSlot))
	})

	t.Run("Theory session in lab room and slot", func(t *testing.T) {
		lesson := f.addLesson(2, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L1"], f.slots["monLab8"], collector(&violations))
		assert.Equal(t, 1, countViolations(violations, ConstraintTheoryInLabRoom))
		assert.Equal(t, 1, countViolations(violations, ConstraintTheoryInLabSlot))
	})
}

func TestRoomCapacity(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()

	t.Run("Full group exceeds a small room", func(t *testing.T) {
		lesson := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
		var violations []model.Violation
		score := eval.lessonScore(lesson, f.rooms["S1"], f.slots["mon8"], collector(&violations))
		// 60 students against 30 seats.
		assert.Equal(t, 30, violationPenalty(violations, ConstraintRoomCapacity))
		assert.Equal(t, -30, score.Hard)
	})

	t.Run("Batched lab only needs a batch's seats", func(t *testing.T) {
		lesson := f.addLesson(2, "t1", "cs102", "g1", model.Lab, model.BatchOne)
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["L1"], f.slots["monLab8"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintRoomCapacity))
	})
}

func TestTimeOfDayPreferences(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	lesson := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)

	t.Run("Morning slot is free", func(t *testing.T) {
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon9"], collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintTimePreference))
		assert.Equal(t, 0, countViolations(violations, ConstraintLateClass))
	})

	t.Run("Afternoon slot pays the time preference", func(t *testing.T) {
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon13"], collector(&violations))
		assert.Equal(t, 5, violationPenalty(violations, ConstraintTimePreference))
		assert.Equal(t, 0, countViolations(violations, ConstraintLateClass))
	})

	t.Run("Evening slot additionally pays the late penalty", func(t *testing.T) {
		var violations []model.Violation
		eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon17"], collector(&violations))
		assert.Equal(t, 5, violationPenalty(violations, ConstraintTimePreference))
		assert.Equal(t, 1, countViolations(violations, ConstraintLateClass))
	})
}

func TestBlockPreference(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	lesson := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)

	var inBlock, offBlock []model.Violation
	eval.lessonScore(lesson, f.rooms["R1"], f.slots["mon9"], collector(&inBlock))
	eval.lessonScore(lesson, f.rooms["R2"], f.slots["mon9"], collector(&offBlock))

	assert.Equal(t, 0, countViolations(inBlock, ConstraintBlockPreference))
	assert.Equal(t, 1, countViolations(offBlock, ConstraintBlockPreference))
}

func TestWeeklyHoursBudget(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()

	t.Run("Excess over the budget is charged", func(t *testing.T) {
		var violations []model.Violation
		score := eval.weeklyHoursScore(f.teachers["t2"], 4, []uint64{1, 2}, collector(&violations))
		assert.Equal(t, -2, score.Soft)
		assert.Equal(t, 2, violationPenalty(violations, ConstraintWeeklyHours))
	})

	t.Run("Zero budget means exempt", func(t *testing.T) {
		score := eval.weeklyHoursScore(f.teachers["t1"], 40, nil, nil)
		assert.Equal(t, model.Score{}, score)
	})
}

func TestTeacherDayAggregates(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	lesson := func(id uint64) *model.Lesson {
		return f.addLesson(id, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	}

	t.Run("Workday span over eight hours", func(t *testing.T) {
		entries := []placed{
			{lesson(1), f.rooms["R1"], f.slots["mon8"]},
			{lesson(2), f.rooms["R1"], f.slots["mon17"]},
		}
		var violations []model.Violation
		score := eval.teacherDayScore(entries, collector(&violations))
		// 08:00 to 17:50 is 9h50m, 110 minutes over the limit.
		assert.Equal(t, 110, violationPenalty(violations, ConstraintWorkdaySpan))
		assert.Equal(t, -110, score.Soft)
	})

	t.Run("Daily load over six effective hours", func(t *testing.T) {
		var entries []placed
		for i := 0; i < 7; i++ {
			slot := &model.TimeSlot{
				ID:    uint64(100 + i),
				Day:   time.Wednesday,
				Start: clock("08:00") + i*60,
				End:   clock("08:50") + i*60,
			}
			entries = append(entries, placed{lesson(uint64(10 + i)), f.rooms["R1"], slot})
		}
		var violations []model.Violation
		eval.teacherDayScore(entries, collector(&violations))
		assert.Equal(t, 1, violationPenalty(violations, ConstraintDailyLoad))
	})

	t.Run("Cross-block travel between adjacent slots", func(t *testing.T) {
		entries := []placed{
			{lesson(20), f.rooms["R1"], f.slots["mon8"]},
			{lesson(21), f.rooms["R2"], f.slots["mon9"]},
		}
		var violations []model.Violation
		score := eval.teacherDayScore(entries, collector(&violations))
		assert.Equal(t, 2, violationPenalty(violations, ConstraintCrossBlockTravel))
		assert.Equal(t, -2, score.Soft)
	})

	t.Run("Unplaced entries are ignored", func(t *testing.T) {
		entries := []placed{
			{lesson(30), f.rooms["R1"], f.slots["mon8"]},
			{lesson(31), nil, nil},
			{lesson(32), nil, f.slots["mon17"]},
		}
		var violations []model.Violation
		score := eval.teacherDayScore(entries, collector(&violations))
		assert.Equal(t, model.Score{}, score)
		assert.Empty(t, violations)
	})

	t.Run("No travel charge within one block", func(t *testing.T) {
		entries := []placed{
			{lesson(22), f.rooms["R1"], f.slots["mon8"]},
			{lesson(23), f.rooms["S1"], f.slots["mon9"]},
		}
		var violations []model.Violation
		eval.teacherDayScore(entries, collector(&violations))
		assert.Equal(t, 0, countViolations(violations, ConstraintCrossBlockTravel))
	})
}

func TestConsecutiveLessonsReward(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	a := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	b := f.addLesson(2, "t1", "cs101", "g1", model.Tutorial, model.FullGroup)

	t.Run("Back-to-back same-course lessons are rewarded", func(t *testing.T) {
		entries := []placed{
			{a, f.rooms["R1"], f.slots["mon8"]},
			{b, f.rooms["R1"], f.slots["mon9"]},
		}
		var violations []model.Violation
		score := eval.groupCourseDayScore(entries, collector(&violations))
		assert.Equal(t, 1, score.Soft)
		assert.Equal(t, -1, violationPenalty(violations, ConstraintConsecutiveReward))
	})

	t.Run("A long break earns nothing", func(t *testing.T) {
		entries := []placed{
			{a, f.rooms["R1"], f.slots["mon8"]},
			{b, f.rooms["R1"], f.slots["mon13"]},
		}
		score := eval.groupCourseDayScore(entries, nil)
		assert.Equal(t, 0, score.Soft)
	})
}

func TestPairedBatchSlots(t *testing.T) {
	f := newFixture()
	eval := f.evaluator()
	b1 := f.addLesson(1, "t1", "cs102", "g1", model.Lab, model.BatchOne)
	b2 := f.addLesson(2, "t2", "cs102", "g1", model.Lab, model.BatchTwo)

	t.Run("Parallel batches are free", func(t *testing.T) {
		pairs1 := []placed{{b1, f.rooms["L1"], f.slots["monLab8"]}}
		pairs2 := []placed{{b2, f.rooms["L3"], f.slots["monLab8"]}}
		score := eval.pairedBatchScore(pairs1, pairs2, nil)
		assert.Equal(t, 0, score.Soft)
	})

	t.Run("Separated batches are charged", func(t *testing.T) {
		pairs1 := []placed{{b1, f.rooms["L1"], f.slots["monLab8"]}}
		pairs2 := []placed{{b2, f.rooms["L3"], f.slots["monLab10"]}}
		var violations []model.Violation
		score := eval.pairedBatchScore(pairs1, pairs2, collector(&violations))
		assert.Equal(t, -1, score.Soft)
		assert.Equal(t, 1, violationPenalty(violations, ConstraintPairedBatchSlot))
	})

	t.Run("Unassigned sides are skipped", func(t *testing.T) {
		pairs1 := []placed{{b1, nil, nil}}
		pairs2 := []placed{{b2, f.rooms["L3"], f.slots["monLab10"]}}
		score := eval.pairedBatchScore(pairs1, pairs2, nil)
		assert.Equal(t, model.Score{}, score)
	})
}

func TestSlotAdjacency(t *testing.T) {
	f := newFixture()

	t.Run("Gap within the break window", func(t *testing.T) {
		assert.True(t, adjacent(f.slots["mon8"], f.slots["mon9"]))
		assert.True(t, adjacent(f.slots["mon9"], f.slots["mon8"]))
	})

	t.Run("Gap over the break window", func(t *testing.T) {
		assert.False(t, adjacent(f.slots["mon8"], f.slots["mon10"]))
	})

	t.Run("Different days never touch", func(t *testing.T) {
		assert.False(t, adjacent(f.slots["mon8"], f.slots["tue8"]))
	})
}

func TestRescoreBreakdownMatchesScore(t *testing.T) {
	//** Arrange: a deliberately messy assignment.
	f := newFixture()
	a := f.addLesson(1, "t1", "cs101", "g1", model.Lecture, model.FullGroup)
	b := f.addLesson(2, "t1", "ma201", "g2", model.Lecture, model.FullGroup)
	c := f.addLesson(3, "t2", "cs102", "g1", model.Lab, model.BatchOne)
	d := f.addLesson(4, "t2", "cs102", "g1", model.Lab, model.BatchTwo)
	f.assign(a, "R2", "mon9")
	f.assign(b, "R2", "mon9")
	f.assign(c, "L1", "monLab8")
	f.assign(d, "L2", "monLab10")

	//** Act
	score, violations := f.evaluator().rescore(f.problem, true)

	//** Assert: the breakdown adds back up to the score.
	var rebuilt model.Score
	for _, v := range violations {
		if v.Hard {
			rebuilt.Hard -= v.Penalty
		} else {
			rebuilt.Soft -= v.Penalty
		}
	}
	assert.Equal(t, score, rebuilt)
	assert.Less(t, score.Hard, 0)
}
