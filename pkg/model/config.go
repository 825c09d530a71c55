package model

import (
	"time"

	"github.com/samber/lo"
)

// Default sizing constants used when the configuration leaves them unset.
const (
	DefaultLabBatchSize    = 35
	DefaultTheoryClassSize = 70
)

// Config carries the static lookup tables the constraint catalogue reads.
// It is built once at load time and passed explicitly into the engine; the
// engine never mutates it.
type Config struct {
	// PreferredBlocks maps a department to the block its theory sessions
	// should stay in.
	PreferredBlocks map[string]string

	// Workdays maps a department to its allowed weekdays (Mon-Fri or
	// Tue-Sat). Departments not listed are unrestricted.
	Workdays map[string][]time.Weekday

	// PriorityLabs maps a course code to its ordered list of preferred lab
	// room names. Courses not listed may use any lab room without penalty.
	PriorityLabs map[string][]string

	// FullGroupLabCourses lists course codes whose labs always run for the
	// full group regardless of group size.
	FullGroupLabCourses []string

	// LabBatchSize is the headcount threshold above which lab sessions are
	// split into two batches, and the seat requirement of a batched lab.
	LabBatchSize int

	// TheoryClassSize is the nominal full-group class size used by loaders
	// when sizing theory rooms.
	TheoryClassSize int
}

// Normalize fills unset sizing constants with their defaults.
func (c *Config) Normalize() {
	if c.LabBatchSize <= 0 {
		c.LabBatchSize = DefaultLabBatchSize
	}
	if c.TheoryClassSize <= 0 {
		c.TheoryClassSize = DefaultTheoryClassSize
	}
}

// PriorityRank returns the 1-based rank of a room within a course's priority
// lab list. ok is false when the course has no mapping or the room is not
// listed.
func (c *Config) PriorityRank(courseCode, roomName string) (rank int, ok bool) {
	labs, mapped := c.PriorityLabs[courseCode]
	if !mapped {
		return 0, false
	}
	index := lo.IndexOf(labs, roomName)
	if index < 0 {
		return 0, false
	}
	return index + 1, true
}

// HasPriorityLabs reports whether the course participates in the priority
// lab mapping at all.
func (c *Config) HasPriorityLabs(courseCode string) bool {
	_, mapped := c.PriorityLabs[courseCode]
	return mapped
}

// AllowsDay reports whether the department may hold sessions on the given
// weekday. Departments without a configured day set are unrestricted.
func (c *Config) AllowsDay(department string, day time.Weekday) bool {
	days, restricted := c.Workdays[department]
	if !restricted {
		return true
	}
	return lo.Contains(days, day)
}

// ExemptFromBatching reports whether the course is on the full-group
// exemption list.
func (c *Config) ExemptFromBatching(courseCode string) bool {
	return lo.Contains(c.FullGroupLabCourses, courseCode)
}
