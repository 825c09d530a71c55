package csvio

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/acadgrid/timetabler/pkg/model"
)

// TimetableRow is one solved lesson in the exported timetable. Unassigned
// lessons keep empty day/room columns so infeasible runs still export.
type TimetableRow struct {
	LessonID   uint64 `csv:"lesson_id"`
	CourseCode string `csv:"course_code"`
	Group      string `csv:"group"`
	Batch      string `csv:"batch"`
	Type       string `csv:"session_type"`
	Teacher    string `csv:"teacher"`
	Day        string `csv:"day"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Room       string `csv:"room"`
	Block      string `csv:"block"`
}

// ViolationRow is one entry of the exported constraint breakdown.
type ViolationRow struct {
	Constraint string `csv:"constraint"`
	Severity   string `csv:"severity"`
	Penalty    int    `csv:"penalty"`
	Lessons    string `csv:"lessons"`
}

// WriteTimetable exports the solved assignment ordered by day and start time.
func WriteTimetable(path string, solution *model.Solution) error {
	lessons := make([]*model.Lesson, len(solution.Problem.Lessons))
	copy(lessons, solution.Problem.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		switch {
		case a.Slot == nil || b.Slot == nil:
			return b.Slot == nil && a.Slot != nil
		case a.Slot.Day != b.Slot.Day:
			return a.Slot.Day < b.Slot.Day
		case a.Slot.Start != b.Slot.Start:
			return a.Slot.Start < b.Slot.Start
		default:
			return a.ID < b.ID
		}
	})

	rows := lo.Map(lessons, func(l *model.Lesson, _ int) *TimetableRow {
		row := &TimetableRow{
			LessonID:   l.ID,
			CourseCode: l.Course.Code,
			Group:      l.Group.Name,
			Batch:      string(l.Batch),
			Type:       string(l.Type),
			Teacher:    l.Teacher.Name,
		}
		if l.Slot != nil {
			row.Day = l.Slot.Day.String()
			row.Start = model.FormatClock(l.Slot.Start)
			row.End = model.FormatClock(l.Slot.End)
		}
		if l.Room != nil {
			row.Room = l.Room.Name
			row.Block = l.Room.Block
		}
		return row
	})

	return writeRows(path, rows)
}

// WriteViolations exports the per-constraint breakdown of the final score.
func WriteViolations(path string, solution *model.Solution) error {
	rows := lo.Map(solution.Violations, func(v model.Violation, _ int) *ViolationRow {
		severity := "soft"
		if v.Hard {
			severity = "hard"
		}
		ids := lo.Map(v.Lessons, func(id uint64, _ int) string { return fmt.Sprintf("%d", id) })
		return &ViolationRow{
			Constraint: v.Constraint,
			Severity:   severity,
			Penalty:    v.Penalty,
			Lessons:    strings.Join(ids, " "),
		}
	})
	return writeRows(path, rows)
}

func writeRows[T any](path string, rows []*T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %v: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	return nil
}
