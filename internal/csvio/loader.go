// Package csvio loads timetabling facts from CSV files and writes solved
// timetables back out. It is the reference implementation of the loader
// contract: by the time a Problem leaves this package, department codes,
// lab-batch splitting and priority-lab lookups have all been resolved.
package csvio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"

	"github.com/acadgrid/timetabler/pkg/model"
)

type RoomRecord struct {
	ID       uint64 `csv:"room_id" validate:"required"`
	Name     string `csv:"name" validate:"required"`
	Block    string `csv:"block"`
	Capacity int    `csv:"capacity" validate:"gt=0"`
	IsLab    bool   `csv:"is_lab"`
	LabType  string `csv:"lab_type" validate:"omitempty,oneof=core computer"`
}

type TimeSlotRecord struct {
	ID    uint64 `csv:"slot_id" validate:"required"`
	Day   int    `csv:"day" validate:"min=0,max=6"`
	Start string `csv:"start" validate:"required"`
	End   string `csv:"end" validate:"required"`
	IsLab bool   `csv:"is_lab"`
}

type TeacherRecord struct {
	ID             uint64 `csv:"teacher_id" validate:"required"`
	Name           string `csv:"name" validate:"required"`
	MaxWeeklyHours int    `csv:"max_weekly_hours" validate:"min=0"`
}

type CourseRecord struct {
	ID             uint64 `csv:"course_id" validate:"required"`
	Code           string `csv:"code" validate:"required"`
	Department     string `csv:"department" validate:"required"`
	LectureHours   int    `csv:"lecture_hours" validate:"min=0"`
	TutorialHours  int    `csv:"tutorial_hours" validate:"min=0"`
	PracticalHours int    `csv:"practical_hours" validate:"min=0"`
	Credits        int    `csv:"credits" validate:"min=0"`
	LabType        string `csv:"lab_type" validate:"omitempty,oneof=core computer"`
}

type GroupRecord struct {
	ID         uint64 `csv:"group_id" validate:"required"`
	Name       string `csv:"name" validate:"required"`
	Department string `csv:"department" validate:"required"`
	Year       int    `csv:"year" validate:"min=1"`
	Size       int    `csv:"size" validate:"gt=0"`
}

// CurriculumRecord ties one course to the group taking it and the teacher
// delivering it. Each row expands into the course's full lesson set.
type CurriculumRecord struct {
	GroupID   uint64 `csv:"group_id" validate:"required"`
	CourseID  uint64 `csv:"course_id" validate:"required"`
	TeacherID uint64 `csv:"teacher_id" validate:"required"`
}

// Files names the input files of one scheduling run. Config is a JSON
// document; everything else is CSV.
type Files struct {
	Rooms      string
	Slots      string
	Teachers   string
	Courses    string
	Groups     string
	Curriculum string
	Config     string
}

// LoadProblem reads every input file, validates the records, expands the
// curriculum into lessons (splitting oversized groups' labs into batches)
// and returns a Problem ready for the solver, all lessons unassigned.
func LoadProblem(files Files) (*model.Problem, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	roomRecords, err := readRecords[RoomRecord](files.Rooms, validate)
	if err != nil {
		return nil, err
	}
	slotRecords, err := readRecords[TimeSlotRecord](files.Slots, validate)
	if err != nil {
		return nil, err
	}
	teacherRecords, err := readRecords[TeacherRecord](files.Teachers, validate)
	if err != nil {
		return nil, err
	}
	courseRecords, err := readRecords[CourseRecord](files.Courses, validate)
	if err != nil {
		return nil, err
	}
	groupRecords, err := readRecords[GroupRecord](files.Groups, validate)
	if err != nil {
		return nil, err
	}
	curriculumRecords, err := readRecords[CurriculumRecord](files.Curriculum, validate)
	if err != nil {
		return nil, err
	}

	configData, err := os.ReadFile(files.Config)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v: %w", files.Config, err)
	}
	cfg, err := model.ConfigFromJSON(configData)
	if err != nil {
		return nil, err
	}

	problem := &model.Problem{Config: cfg}

	rooms := make(map[uint64]*model.Room, len(roomRecords))
	for _, record := range roomRecords {
		room := &model.Room{
			ID:       record.ID,
			Name:     record.Name,
			Block:    record.Block,
			Capacity: record.Capacity,
			IsLab:    record.IsLab,
			LabType:  model.LabType(record.LabType),
		}
		rooms[room.ID] = room
		problem.Rooms = append(problem.Rooms, room)
	}

	for _, record := range slotRecords {
		start, err := model.ParseClock(record.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", record.ID, err)
		}
		end, err := model.ParseClock(record.End)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", record.ID, err)
		}
		if end <= start {
			return nil, fmt.Errorf("slot %d: end %v is not after start %v", record.ID, record.End, record.Start)
		}
		problem.Slots = append(problem.Slots, &model.TimeSlot{
			ID:    record.ID,
			Day:   time.Weekday(record.Day),
			Start: start,
			End:   end,
			IsLab: record.IsLab,
		})
	}

	teachers := make(map[uint64]*model.Teacher, len(teacherRecords))
	for _, record := range teacherRecords {
		teacher := &model.Teacher{ID: record.ID, Name: record.Name, MaxWeeklyHours: record.MaxWeeklyHours}
		teachers[teacher.ID] = teacher
		problem.Teachers = append(problem.Teachers, teacher)
	}

	courses := make(map[uint64]*model.Course, len(courseRecords))
	for _, record := range courseRecords {
		course := &model.Course{
			ID:             record.ID,
			Code:           record.Code,
			Department:     record.Department,
			LectureHours:   record.LectureHours,
			TutorialHours:  record.TutorialHours,
			PracticalHours: record.PracticalHours,
			Credits:        record.Credits,
			LabType:        model.LabType(record.LabType),
		}
		courses[course.ID] = course
		problem.Courses = append(problem.Courses, course)
	}

	groups := make(map[uint64]*model.StudentGroup, len(groupRecords))
	for _, record := range groupRecords {
		group := &model.StudentGroup{
			ID:         record.ID,
			Name:       record.Name,
			Department: record.Department,
			Year:       record.Year,
			Size:       record.Size,
		}
		groups[group.ID] = group
		problem.Groups = append(problem.Groups, group)
	}

	problem.Lessons, err = expandLessons(curriculumRecords, courses, groups, teachers, cfg)
	if err != nil {
		return nil, err
	}

	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return problem, nil
}

// expandLessons turns curriculum rows into the lesson set the engine
// schedules: one lecture per weekly lecture hour, one tutorial per tutorial
// hour, one lab session per two practical hours (rounded up). Oversized
// groups get their lab sessions split into B1/B2 unless the course is on the
// full-group exemption list.
func expandLessons(
	records []*CurriculumRecord,
	courses map[uint64]*model.Course,
	groups map[uint64]*model.StudentGroup,
	teachers map[uint64]*model.Teacher,
	cfg *model.Config,
) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	nextID := uint64(1)

	add := func(teacher *model.Teacher, course *model.Course, group *model.StudentGroup, sessionType model.SessionType, batch model.LabBatch) {
		lessons = append(lessons, &model.Lesson{
			ID:      nextID,
			Teacher: teacher,
			Course:  course,
			Group:   group,
			Type:    sessionType,
			Batch:   batch,
		})
		nextID++
	}

	for _, record := range records {
		course, ok := courses[record.CourseID]
		if !ok {
			return nil, fmt.Errorf("curriculum references unknown course %d", record.CourseID)
		}
		group, ok := groups[record.GroupID]
		if !ok {
			return nil, fmt.Errorf("curriculum references unknown group %d", record.GroupID)
		}
		teacher, ok := teachers[record.TeacherID]
		if !ok {
			return nil, fmt.Errorf("curriculum references unknown teacher %d", record.TeacherID)
		}

		for n := 0; n < course.LectureHours; n++ {
			add(teacher, course, group, model.Lecture, model.FullGroup)
		}
		for n := 0; n < course.TutorialHours; n++ {
			add(teacher, course, group, model.Tutorial, model.FullGroup)
		}

		labSessions := (course.PracticalHours + 1) / 2
		split := group.Size > cfg.LabBatchSize && !cfg.ExemptFromBatching(course.Code)
		for n := 0; n < labSessions; n++ {
			if split {
				add(teacher, course, group, model.Lab, model.BatchOne)
				add(teacher, course, group, model.Lab, model.BatchTwo)
			} else {
				add(teacher, course, group, model.Lab, model.FullGroup)
			}
		}
	}

	return lessons, nil
}

func readRecords[T any](path string, validate *validator.Validate) ([]*T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %v: %w", path, err)
	}
	defer file.Close()

	var records []*T
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("cannot parse %v: %w", path, err)
	}
	for i, record := range records {
		if err := validate.Struct(record); err != nil {
			return nil, fmt.Errorf("%v row %d: %w", path, i+1, err)
		}
	}
	return records, nil
}
