package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
)

// The input document mirrors the JSON problem format: plain fact lists plus
// the configuration tables, with lessons referencing facts by id.

type RoomInput struct {
	ID       uint64 `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Block    string `mapstructure:"block"`
	Capacity int    `mapstructure:"capacity"`
	IsLab    bool   `mapstructure:"isLab"`
	LabType  string `mapstructure:"labType"`
}

type TimeSlotInput struct {
	ID    uint64 `mapstructure:"id"`
	Day   int    `mapstructure:"day"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
	IsLab bool   `mapstructure:"isLab"`
}

type TeacherInput struct {
	ID             uint64 `mapstructure:"id"`
	Name           string `mapstructure:"name"`
	MaxWeeklyHours int    `mapstructure:"maxWeeklyHours"`
}

type CourseInput struct {
	ID             uint64 `mapstructure:"id"`
	Code           string `mapstructure:"code"`
	Department     string `mapstructure:"department"`
	LectureHours   int    `mapstructure:"lectureHours"`
	TutorialHours  int    `mapstructure:"tutorialHours"`
	PracticalHours int    `mapstructure:"practicalHours"`
	Credits        int    `mapstructure:"credits"`
	LabType        string `mapstructure:"labType"`
}

type GroupInput struct {
	ID         uint64 `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Department string `mapstructure:"department"`
	Year       int    `mapstructure:"year"`
	Size       int    `mapstructure:"size"`
}

type LessonInput struct {
	ID      uint64 `mapstructure:"id"`
	Teacher uint64 `mapstructure:"teacher"`
	Course  uint64 `mapstructure:"course"`
	Group   uint64 `mapstructure:"group"`
	Type    string `mapstructure:"type"`
	Batch   string `mapstructure:"batch"`
}

type ConfigInput struct {
	PreferredBlocks     map[string]string   `mapstructure:"preferredBlocks"`
	Workdays            map[string][]int    `mapstructure:"workdays"`
	PriorityLabs        map[string][]string `mapstructure:"priorityLabs"`
	FullGroupLabCourses []string            `mapstructure:"fullGroupLabCourses"`
	LabBatchSize        int                 `mapstructure:"labBatchSize"`
	TheoryClassSize     int                 `mapstructure:"theoryClassSize"`
}

type InputDocument struct {
	Rooms     []RoomInput     `mapstructure:"rooms"`
	TimeSlots []TimeSlotInput `mapstructure:"timeSlots"`
	Teachers  []TeacherInput  `mapstructure:"teachers"`
	Courses   []CourseInput   `mapstructure:"courses"`
	Groups    []GroupInput    `mapstructure:"groups"`
	Lessons   []LessonInput   `mapstructure:"lessons"`
	Config    ConfigInput     `mapstructure:"config"`
}

// ProblemFromJSON decodes a JSON problem document into a fully wired
// Problem with all lessons unassigned.
func ProblemFromJSON(data []byte) (*Problem, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse input json: %w", err)
	}

	var document InputDocument
	if err := mapstructure.Decode(raw, &document); err != nil {
		return nil, fmt.Errorf("cannot decode input document: %w", err)
	}

	return document.Problem()
}

// InputFromJSON reads and decodes a JSON problem file.
func InputFromJSON(file string) (*Problem, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	return ProblemFromJSON(data)
}

// Problem materializes the document into entities, resolving lesson
// references and validating the result.
func (document InputDocument) Problem() (*Problem, error) {
	problem := &Problem{}

	rooms := make(map[uint64]*Room, len(document.Rooms))
	for _, input := range document.Rooms {
		room := &Room{
			ID:       input.ID,
			Name:     input.Name,
			Block:    input.Block,
			Capacity: input.Capacity,
			IsLab:    input.IsLab,
			LabType:  LabType(input.LabType),
		}
		rooms[room.ID] = room
		problem.Rooms = append(problem.Rooms, room)
	}

	slots := make(map[uint64]*TimeSlot, len(document.TimeSlots))
	for _, input := range document.TimeSlots {
		start, err := ParseClock(input.Start)
		if err != nil {
			return nil, fmt.Errorf("time slot %d: %w", input.ID, err)
		}
		end, err := ParseClock(input.End)
		if err != nil {
			return nil, fmt.Errorf("time slot %d: %w", input.ID, err)
		}
		if end <= start {
			return nil, fmt.Errorf("time slot %d: end %q is not after start %q", input.ID, input.End, input.Start)
		}
		slot := &TimeSlot{
			ID:    input.ID,
			Day:   time.Weekday(input.Day),
			Start: start,
			End:   end,
			IsLab: input.IsLab,
		}
		slots[slot.ID] = slot
		problem.Slots = append(problem.Slots, slot)
	}

	teachers := make(map[uint64]*Teacher, len(document.Teachers))
	for _, input := range document.Teachers {
		teacher := &Teacher{ID: input.ID, Name: input.Name, MaxWeeklyHours: input.MaxWeeklyHours}
		teachers[teacher.ID] = teacher
		problem.Teachers = append(problem.Teachers, teacher)
	}

	courses := make(map[uint64]*Course, len(document.Courses))
	for _, input := range document.Courses {
		course := &Course{
			ID:             input.ID,
			Code:           input.Code,
			Department:     input.Department,
			LectureHours:   input.LectureHours,
			TutorialHours:  input.TutorialHours,
			PracticalHours: input.PracticalHours,
			Credits:        input.Credits,
			LabType:        LabType(input.LabType),
		}
		courses[course.ID] = course
		problem.Courses = append(problem.Courses, course)
	}

	groups := make(map[uint64]*StudentGroup, len(document.Groups))
	for _, input := range document.Groups {
		group := &StudentGroup{
			ID:         input.ID,
			Name:       input.Name,
			Department: input.Department,
			Year:       input.Year,
			Size:       input.Size,
		}
		groups[group.ID] = group
		problem.Groups = append(problem.Groups, group)
	}

	for _, input := range document.Lessons {
		teacher, ok := teachers[input.Teacher]
		if !ok {
			return nil, fmt.Errorf("lesson %d references unknown teacher %d", input.ID, input.Teacher)
		}
		course, ok := courses[input.Course]
		if !ok {
			return nil, fmt.Errorf("lesson %d references unknown course %d", input.ID, input.Course)
		}
		group, ok := groups[input.Group]
		if !ok {
			return nil, fmt.Errorf("lesson %d references unknown group %d", input.ID, input.Group)
		}
		problem.Lessons = append(problem.Lessons, &Lesson{
			ID:      input.ID,
			Teacher: teacher,
			Course:  course,
			Group:   group,
			Type:    SessionType(input.Type),
			Batch:   LabBatch(input.Batch),
		})
	}

	workdays := make(map[string][]time.Weekday, len(document.Config.Workdays))
	for department, days := range document.Config.Workdays {
		for _, day := range days {
			workdays[department] = append(workdays[department], time.Weekday(day))
		}
	}
	problem.Config = &Config{
		PreferredBlocks:     document.Config.PreferredBlocks,
		Workdays:            workdays,
		PriorityLabs:        document.Config.PriorityLabs,
		FullGroupLabCourses: document.Config.FullGroupLabCourses,
		LabBatchSize:        document.Config.LabBatchSize,
		TheoryClassSize:     document.Config.TheoryClassSize,
	}
	problem.Config.Normalize()

	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return problem, nil
}

// ParseClock converts an "HH:MM" clock string to minutes since midnight.
func ParseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse clock time %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock renders minutes since midnight as an "HH:MM" clock string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ConfigFromJSON decodes the standalone configuration document consumed by
// the CSV loader.
func ConfigFromJSON(data []byte) (*Config, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse config json: %w", err)
	}

	var input ConfigInput
	if err := mapstructure.Decode(raw, &input); err != nil {
		return nil, fmt.Errorf("cannot decode config document: %w", err)
	}

	workdays := make(map[string][]time.Weekday, len(input.Workdays))
	for department, days := range input.Workdays {
		for _, day := range days {
			workdays[department] = append(workdays[department], time.Weekday(day))
		}
	}
	cfg := &Config{
		PreferredBlocks:     input.PreferredBlocks,
		Workdays:            workdays,
		PriorityLabs:        input.PriorityLabs,
		FullGroupLabCourses: input.FullGroupLabCourses,
		LabBatchSize:        input.LabBatchSize,
		TheoryClassSize:     input.TheoryClassSize,
	}
	cfg.Normalize()
	return cfg, nil
}
