// Package attendance keeps the roll-call sessions of the courses and the presence of their students.
package attendance

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

const (
	MaxTitleLength   = 255
	MaxCommentLength = 4096
)

type Event struct {
	ID                int64       `json:"id" db:"id"`
	CourseID          int64       `json:"course_id" db:"course_id"`
	Hidden            bool        `json:"hidden" db:"hidden"`
	AuthorID          null.String `json:"author_id" db:"author_id"`
	StartTime         time.Time   `json:"start_time" db:"start_time"`
	EndTime           time.Time   `json:"end_time" db:"end_time"`
	Open              bool        `json:"open" db:"-"`
	CommentTchVisible bool        `json:"comment_tch_visible" db:"comment_tch_visible"`
	Title             string      `json:"title" db:"title"`
	Description       string      `json:"description,omitempty" db:"description"`
	GroupIDs          []int64     `json:"group_ids" db:"-"`
	NumStudents       int         `json:"num_students" db:"num_students"` // registered as present
}

// IsOpenAt reports whether students can register in the event at t.
func (ev Event) IsOpenAt(t time.Time) bool {
	return !t.Before(ev.StartTime) && !t.After(ev.EndTime)
}

// Record is the attendance of a user to an event.
type Record struct {
	EventID    int64  `json:"event_id" db:"event_id"`
	UserID     string `json:"user_id" db:"user_id"`
	Name       string `json:"name" db:"name"`
	Present    bool   `json:"present" db:"present"`
	CommentStd string `json:"comment_std" db:"comment_std"`
	CommentTch string `json:"comment_tch" db:"comment_tch"`
}

func (rec Record) hasComments() bool {
	return rec.CommentStd != "" || rec.CommentTch != ""
}

// Order is the field events are sorted by.
type Order string

const (
	OrderStart Order = "start"
	OrderEnd   Order = "end"
)

// Which selects the events listed to a user.
type Which string

const (
	// AllEvents lists every event of the course.
	AllEvents Which = "all"
	// MyEvents lists the events without groups and the events of the groups of the user.
	MyEvents Which = "mine"
)

type ListFilter struct {
	Which  Which
	Order  Order
	Oldest bool // oldest first
}

// Clean fills the default values of the filter.
func (f *ListFilter) Clean() {
	if f.Which != MyEvents {
		f.Which = AllEvents
	}
	if f.Order != OrderEnd {
		f.Order = OrderStart
	}
}

// RepoFilter is the filter handed to the repository.
// A non empty MemberID restricts the listing to events without groups or with a group of this user.
type RepoFilter struct {
	CourseID   int64
	WithHidden bool
	MemberID   string
	Order      Order
	Oldest     bool
}

type NewEvent struct {
	Title             string    `json:"title" validate:"required,notblank,max=255"`
	Description       string    `json:"description" validate:"max=65535"`
	StartTime         time.Time `json:"start_time" validate:"required"`
	EndTime           time.Time `json:"end_time" validate:"required,gtefield=StartTime"`
	Hidden            bool      `json:"hidden"`
	CommentTchVisible bool      `json:"comment_tch_visible"`
	GroupIDs          []int64   `json:"group_ids"`
}

func (ne *NewEvent) Clean() {
	ne.Title = strings.Join(strings.Fields(ne.Title), " ")
	ne.Description = strings.TrimSpace(ne.Description)
}

type UpdateEvent struct {
	Title             *string    `json:"title" validate:"omitempty,notblank,max=255"`
	Description       *string    `json:"description" validate:"omitempty,max=65535"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	CommentTchVisible *bool      `json:"comment_tch_visible"`
	GroupIDs          *[]int64   `json:"group_ids"`
}

// StudentRegistration is the attendance of a student as set by a teacher.
type StudentRegistration struct {
	UserID     string `json:"user_id" validate:"required"`
	Present    bool   `json:"present"`
	CommentTch string `json:"comment_tch" validate:"max=4096"`
}

type Registrations struct {
	Students []StudentRegistration `json:"students" validate:"dive"`
}

type MyRegistration struct {
	CommentStd string `json:"comment_std" validate:"max=4096"`
}

// Summary is the attendance of a set of users to a set of events.
type Summary struct {
	Events []Event      `json:"events"`
	Rows   []SummaryRow `json:"rows"`
}

// SummaryRow is the attendance of a user. Present is aligned with Summary.Events.
type SummaryRow struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Present     []bool `json:"present"`
	NumAttended int    `json:"num_attended"`
}
