package solver

import (
	"time"

	"github.com/acadgrid/timetabler/pkg/model"
)

// fixture is a compact university instance shared by the solver tests: two
// blocks, theory and lab rooms, a week of slots and a configuration that
// exercises every lookup table. Tests add the lessons they need.
type fixture struct {
	problem *model.Problem

	rooms    map[string]*model.Room
	slots    map[string]*model.TimeSlot
	teachers map[string]*model.Teacher
	courses  map[string]*model.Course
	groups   map[string]*model.StudentGroup
}

func newFixture() *fixture {
	f := &fixture{
		rooms:    make(map[string]*model.Room),
		slots:    make(map[string]*model.TimeSlot),
		teachers: make(map[string]*model.Teacher),
		courses:  make(map[string]*model.Course),
		groups:   make(map[string]*model.StudentGroup),
	}

	f.addRoom(&model.Room{ID: 1, Name: "R1", Block: "A", Capacity: 70})
	f.addRoom(&model.Room{ID: 2, Name: "R2", Block: "B", Capacity: 70})
	f.addRoom(&model.Room{ID: 3, Name: "S1", Block: "A", Capacity: 30})
	f.addRoom(&model.Room{ID: 4, Name: "L1", Block: "A", Capacity: 40, IsLab: true, LabType: model.LabTypeComputer})
	f.addRoom(&model.Room{ID: 5, Name: "L2", Block: "B", Capacity: 40, IsLab: true, LabType: model.LabTypeCore})
	f.addRoom(&model.Room{ID: 6, Name: "L3", Block: "A", Capacity: 40, IsLab: true, LabType: model.LabTypeComputer})

	f.addSlot("mon8", &model.TimeSlot{ID: 11, Day: time.Monday, Start: clock("08:00"), End: clock("08:50")})
	f.addSlot("mon9", &model.TimeSlot{ID: 12, Day: time.Monday, Start: clock("09:00"), End: clock("09:50")})
	f.addSlot("mon930", &model.TimeSlot{ID: 13, Day: time.Monday, Start: clock("09:30"), End: clock("10:20")})
	f.addSlot("mon10", &model.TimeSlot{ID: 14, Day: time.Monday, Start: clock("10:00"), End: clock("10:50")})
	f.addSlot("mon13", &model.TimeSlot{ID: 15, Day: time.Monday, Start: clock("13:00"), End: clock("13:50")})
	f.addSlot("mon17", &model.TimeSlot{ID: 16, Day: time.Monday, Start: clock("17:00"), End: clock("17:50")})
	f.addSlot("tue8", &model.TimeSlot{ID: 17, Day: time.Tuesday, Start: clock("08:00"), End: clock("08:50")})
	f.addSlot("tue9", &model.TimeSlot{ID: 18, Day: time.Tuesday, Start: clock("09:00"), End: clock("09:50")})
	f.addSlot("monLab8", &model.TimeSlot{ID: 19, Day: time.Monday, Start: clock("08:00"), End: clock("09:40"), IsLab: true})
	f.addSlot("monLab10", &model.TimeSlot{ID: 20, Day: time.Monday, Start: clock("10:00"), End: clock("11:40"), IsLab: true})
	f.addSlot("tueLab8", &model.TimeSlot{ID: 21, Day: time.Tuesday, Start: clock("08:00"), End: clock("09:40"), IsLab: true})

	f.teachers["t1"] = &model.Teacher{ID: 31, Name: "Alvarez"}
	f.teachers["t2"] = &model.Teacher{ID: 32, Name: "Brennan", MaxWeeklyHours: 2}

	f.courses["cs101"] = &model.Course{ID: 41, Code: "CS101", Department: "CS", LectureHours: 2, TutorialHours: 1}
	f.courses["cs102"] = &model.Course{ID: 42, Code: "CS102", Department: "CS", LectureHours: 1, PracticalHours: 2, LabType: model.LabTypeComputer}
	f.courses["ma201"] = &model.Course{ID: 43, Code: "MA201", Department: "MATH", LectureHours: 2}

	f.groups["g1"] = &model.StudentGroup{ID: 51, Name: "CS-2A", Department: "CS", Year: 2, Size: 60}
	f.groups["g2"] = &model.StudentGroup{ID: 52, Name: "MA-1A", Department: "MATH", Year: 1, Size: 30}

	cfg := &model.Config{
		PreferredBlocks: map[string]string{"CS": "A"},
		Workdays: map[string][]time.Weekday{
			"MATH": {time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		},
		PriorityLabs: map[string][]string{"CS102": {"L1", "L3"}},
	}
	cfg.Normalize()

	f.problem = &model.Problem{Config: cfg}
	for _, name := range []string{"R1", "R2", "S1", "L1", "L2", "L3"} {
		f.problem.Rooms = append(f.problem.Rooms, f.rooms[name])
	}
	for _, name := range []string{"mon8", "mon9", "mon930", "mon10", "mon13", "mon17", "tue8", "tue9", "monLab8", "monLab10", "tueLab8"} {
		f.problem.Slots = append(f.problem.Slots, f.slots[name])
	}
	f.problem.Teachers = append(f.problem.Teachers, f.teachers["t1"], f.teachers["t2"])
	f.problem.Courses = append(f.problem.Courses, f.courses["cs101"], f.courses["cs102"], f.courses["ma201"])
	f.problem.Groups = append(f.problem.Groups, f.groups["g1"], f.groups["g2"])

	return f
}

func (f *fixture) addRoom(room *model.Room) {
	f.rooms[room.Name] = room
}

func (f *fixture) addSlot(name string, slot *model.TimeSlot) {
	f.slots[name] = slot
}

func (f *fixture) addLesson(id uint64, teacher, course, group string, sessionType model.SessionType, batch model.LabBatch) *model.Lesson {
	lesson := &model.Lesson{
		ID:      id,
		Teacher: f.teachers[teacher],
		Course:  f.courses[course],
		Group:   f.groups[group],
		Type:    sessionType,
		Batch:   batch,
	}
	f.problem.Lessons = append(f.problem.Lessons, lesson)
	return lesson
}

func (f *fixture) assign(lesson *model.Lesson, room, slot string) {
	lesson.Room = f.rooms[room]
	lesson.Slot = f.slots[slot]
}

func (f *fixture) evaluator() *evaluator {
	return newEvaluator(f.problem.Config)
}

func clock(value string) int {
	minutes, err := model.ParseClock(value)
	if err != nil {
		panic(err)
	}
	return minutes
}

// countViolations sums the occurrences of one constraint in a breakdown.
func countViolations(violations []model.Violation, constraint string) int {
	count := 0
	for _, v := range violations {
		if v.Constraint == constraint {
			count++
		}
	}
	return count
}

// violationPenalty sums the penalties charged under one constraint.
func violationPenalty(violations []model.Violation, constraint string) int {
	total := 0
	for _, v := range violations {
		if v.Constraint == constraint {
			total += v.Penalty
		}
	}
	return total
}
