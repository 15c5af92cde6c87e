// Package group manages the groups of a course and the enrolment of users in them.
package group

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

const (
	MaxTypeNameLength  = 255
	MaxGroupNameLength = 255

	// MaxStudentsLimit is the highest meaningful limit of students per group.
	// Higher or absent values mean the group has no limit.
	MaxStudentsLimit = 10000
)

type Type struct {
	ID           int64     `json:"id" db:"id"`
	CourseID     int64     `json:"course_id" db:"course_id"`
	Name         string    `json:"name" db:"name"`
	Mandatory    bool      `json:"mandatory" db:"mandatory"`
	Multiple     bool      `json:"multiple" db:"multiple"`
	MustBeOpened bool      `json:"must_be_opened" db:"must_be_opened"`
	OpenTime     null.Time `json:"open_time" db:"open_time"`
	Groups       []Group   `json:"groups" db:"-"`
}

// Single reports whether a user may belong to at most one group of the type.
func (t Type) Single() bool {
	return !t.Multiple
}

type Group struct {
	ID          int64      `json:"id" db:"id"`
	TypeID      int64      `json:"type_id" db:"type_id"`
	CourseID    int64      `json:"course_id" db:"course_id"`
	Name        string     `json:"name" db:"name"`
	RoomID      null.Int64 `json:"room_id" db:"room_id"`
	MaxStudents null.Int   `json:"max_students" db:"max_students"`
	Open        bool       `json:"open" db:"open"`
	FileZones   bool       `json:"file_zones" db:"file_zones"`
	NumStudents int        `json:"num_students" db:"num_students"`
}

// IsFull reports whether the group has reached its limit of students.
func (g Group) IsFull() bool {
	return g.MaxStudents.Valid && g.NumStudents >= g.MaxStudents.Int
}

// Vacant returns the number of free places, or -1 when the group has no limit.
func (g Group) Vacant() int {
	if !g.MaxStudents.Valid {
		return -1
	}
	if v := g.MaxStudents.Int - g.NumStudents; v > 0 {
		return v
	}
	return 0
}

// MaxStudentsFromInput turns a requested limit into the stored one.
// Negative or too high values mean "no limit".
func MaxStudentsFromInput(max int) null.Int {
	if max < 0 || max > MaxStudentsLimit {
		return null.Int{}
	}
	return null.IntFrom(max)
}

// Member is a user enrolled in a group.
type Member struct {
	GroupID int64  `json:"group_id" db:"group_id"`
	UserID  string `json:"user_id" db:"user_id"`
	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	Role    string `json:"role" db:"role"`
}

// ListFilter selects the group types listed for a course.
type ListFilter struct {
	// OnlyWithGroups skips types that have no groups.
	OnlyWithGroups bool
}

type NewType struct {
	Name      string     `json:"name" validate:"required,notblank,max=255"`
	Mandatory bool       `json:"mandatory"`
	Multiple  bool       `json:"multiple"`
	OpenTime  *time.Time `json:"open_time"`
}

func (nt *NewType) Clean() {
	nt.Name = strings.Join(strings.Fields(nt.Name), " ")
}

type UpdateType struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=255"`
	Mandatory *bool   `json:"mandatory"`
	Multiple  *bool   `json:"multiple"`

	// OpenTime in the future schedules the opening of the groups of the type.
	OpenTime *time.Time `json:"open_time"`
	// ClearOpenTime cancels a scheduled opening.
	ClearOpenTime bool `json:"clear_open_time"`
}

type NewGroup struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	RoomID      int64  `json:"room_id" validate:"min=0"`
	MaxStudents *int   `json:"max_students"` // nil or negative: no limit
	Open        bool   `json:"open"`
	FileZones   bool   `json:"file_zones"`
}

func (ng *NewGroup) Clean() {
	ng.Name = strings.Join(strings.Fields(ng.Name), " ")
}

type UpdateGroup struct {
	TypeID      *int64  `json:"type_id"`
	Name        *string `json:"name" validate:"omitempty,notblank,max=255"`
	RoomID      *int64  `json:"room_id" validate:"omitempty,min=0"` // 0: no room
	MaxStudents *int    `json:"max_students"`                       // negative: no limit
	Open        *bool   `json:"open"`
	FileZones   *bool   `json:"file_zones"`
}

// Selection is a set of groups wanted by a user.
type Selection struct {
	GroupIDs []int64 `json:"group_ids"`
}

// Changes reports the memberships added and removed by an operation.
type Changes struct {
	Added   []int64 `json:"added"`
	Removed []int64 `json:"removed"`
}

func (c Changes) Changed() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}
