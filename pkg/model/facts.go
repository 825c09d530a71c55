package model

import "time"

// LabType classifies laboratory rooms and the courses that require them.
type LabType string

const (
	LabTypeNone     LabType = ""
	LabTypeCore     LabType = "core"
	LabTypeComputer LabType = "computer"
)

// Room is an immutable fact: created once at load time, never mutated during search.
type Room struct {
	ID       uint64
	Name     string
	Block    string
	Capacity int
	IsLab    bool
	LabType  LabType
}

// TimeSlot is an immutable fact. Lab slots are longer (~100 minutes) than
// theory slots (~50 minutes). Start and End are minutes since midnight.
type TimeSlot struct {
	ID    uint64
	Day   time.Weekday
	Start int
	End   int
	IsLab bool
}

// Overlaps reports whether two slots share any time on the same day.
func (s *TimeSlot) Overlaps(other *TimeSlot) bool {
	return s.Day == other.Day && s.Start < other.End && other.Start < s.End
}

// DurationMinutes returns the slot length in minutes.
func (s *TimeSlot) DurationMinutes() int {
	return s.End - s.Start
}

// StartHour returns the hour-of-day the slot begins at.
func (s *TimeSlot) StartHour() int {
	return s.Start / 60
}

// EffectiveHours is the teaching-hour weight of a slot: lab slots count
// double since they span two theory periods.
func EffectiveHours(slot *TimeSlot) int {
	switch {
	case slot == nil:
		return 0
	case slot.IsLab:
		return 2
	default:
		return 1
	}
}

// Teacher is an immutable fact. MaxWeeklyHours of zero means no budget.
type Teacher struct {
	ID             uint64
	Name           string
	MaxWeeklyHours int
}

// Course is an immutable fact. PracticalHours drives how many lab sessions
// the course's lesson set must contain.
type Course struct {
	ID             uint64
	Code           string
	Department     string
	LectureHours   int
	TutorialHours  int
	PracticalHours int
	Credits        int
	LabType        LabType
}

// StudentGroup is an immutable fact. Size drives lab batching: a group larger
// than the batch threshold has its lab sessions split into two batches.
type StudentGroup struct {
	ID         uint64
	Name       string
	Department string
	Year       int
	Size       int
}
