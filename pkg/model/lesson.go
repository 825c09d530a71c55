package model

// SessionType distinguishes the three kinds of lesson instances.
type SessionType string

const (
	Lecture  SessionType = "lecture"
	Tutorial SessionType = "tutorial"
	Lab      SessionType = "lab"
)

// LabBatch identifies a half-group split of a lab session. Empty means the
// lesson runs for the full group.
type LabBatch string

const (
	FullGroup LabBatch = ""
	BatchOne  LabBatch = "B1"
	BatchTwo  LabBatch = "B2"
)

// Lesson is the sole assignable entity. Identity, Teacher, Course, Group,
// Type and Batch are fixed for the lesson's lifetime; only the planning
// fields Room and Slot are mutated, and only by the construction heuristic
// and the local-search engine.
type Lesson struct {
	ID      uint64
	Teacher *Teacher
	Course  *Course
	Group   *StudentGroup

	Type  SessionType
	Batch LabBatch

	//** Planning fields
	Room *Room
	Slot *TimeSlot
}

// Assigned reports whether both planning fields have been set.
func (l *Lesson) Assigned() bool {
	return l.Room != nil && l.Slot != nil
}

// RequiredCapacity is the seat count the assigned room must provide: the
// batch size for batched labs, the full group's headcount otherwise.
func (l *Lesson) RequiredCapacity(batchSize int) int {
	if l.Batch != FullGroup {
		return batchSize
	}
	return l.Group.Size
}
