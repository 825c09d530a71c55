package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/acadgrid/timetabler/internal/solver"
	"github.com/acadgrid/timetabler/pkg/model"
)

type scheduleLesson struct {
	LessonID   uint64 `json:"lessonId"`
	CourseCode string `json:"courseCode"`
	Group      string `json:"group"`
	Batch      string `json:"batch,omitempty"`
	Type       string `json:"type"`
	Teacher    string `json:"teacher"`
	Day        string `json:"day,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	Room       string `json:"room,omitempty"`
}

type scheduleViolation struct {
	Constraint string   `json:"constraint"`
	Severity   string   `json:"severity"`
	Penalty    int      `json:"penalty"`
	Lessons    []uint64 `json:"lessons"`
}

type scheduleResult struct {
	Feasible   bool                `json:"feasible"`
	Hard       int                 `json:"hard"`
	Soft       int                 `json:"soft"`
	Timetable  []scheduleLesson    `json:"timetable"`
	Violations []scheduleViolation `json:"violations"`
}

// Schedule solves the JSON problem document in the request body. The
// solver's time budget comes from the service configuration, so the write
// timeout must stay above it.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, r, "cannot read request body")
		return
	}

	problem, err := model.ProblemFromJSON(body)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	engine := solver.New(solver.Options{
		TimeBudget:     time.Duration(h.config.Solver.TimeBudget) * time.Second,
		Neighborhood:   h.config.Solver.Neighborhood,
		TabuTenure:     h.config.Solver.TabuTenure,
		LateAcceptance: h.config.Solver.LateAcceptance,
		Workers:        h.config.Solver.Workers,
		Seed:           h.config.Solver.Seed,
		StopOnFeasible: h.config.Solver.StopOnFeasible,
	})
	solution, err := engine.Solve(r.Context(), problem)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	result := scheduleResult{
		Feasible:   solution.Feasible(),
		Hard:       solution.Score.Hard,
		Soft:       solution.Score.Soft,
		Timetable:  lo.Map(problem.Lessons, func(l *model.Lesson, _ int) scheduleLesson { return renderLesson(l) }),
		Violations: lo.Map(solution.Violations, func(v model.Violation, _ int) scheduleViolation { return renderViolation(v) }),
	}

	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: "timetable solved",
		Data:    result,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: "ok",
		Data:    map[string]string{"environment": h.config.Environment},
	})
}

func renderLesson(l *model.Lesson) scheduleLesson {
	rendered := scheduleLesson{
		LessonID:   l.ID,
		CourseCode: l.Course.Code,
		Group:      l.Group.Name,
		Batch:      string(l.Batch),
		Type:       string(l.Type),
		Teacher:    l.Teacher.Name,
	}
	if l.Slot != nil {
		rendered.Day = l.Slot.Day.String()
		rendered.Start = model.FormatClock(l.Slot.Start)
		rendered.End = model.FormatClock(l.Slot.End)
	}
	if l.Room != nil {
		rendered.Room = l.Room.Name
	}
	return rendered
}

func renderViolation(v model.Violation) scheduleViolation {
	severity := "soft"
	if v.Hard {
		severity = "hard"
	}
	return scheduleViolation{
		Constraint: v.Constraint,
		Severity:   severity,
		Penalty:    v.Penalty,
		Lessons:    v.Lessons,
	}
}
