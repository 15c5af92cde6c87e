// Package course holds courses and the enrolment of users in them.
package course

import (
	"context"
	"strings"

	"github.com/acanas/swad-core-sub004/core"
)

// Role is the role of a user inside a course.
type Role string

const (
	RoleStudent           Role = "student"
	RoleNonEditingTeacher Role = "non_editing_teacher"
	RoleTeacher           Role = "teacher"
)

var AllRoles = []Role{RoleStudent, RoleNonEditingTeacher, RoleTeacher}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsTeacher reports whether r is one of the teaching roles.
func (r Role) IsTeacher() bool {
	return r == RoleTeacher || r == RoleNonEditingTeacher
}

// CanEdit reports whether r may change course data.
func (r Role) CanEdit() bool {
	return r == RoleTeacher
}

const (
	MinYear = 0 // optional courses, not tied to a year
	MaxYear = 12
)

type Course struct {
	ID        int64  `json:"id" db:"id"`
	DegreeID  int64  `json:"degree_id" db:"degree_id"`
	Year      int    `json:"year" db:"year"`
	ShortName string `json:"short_name" db:"short_name"`
	FullName  string `json:"full_name" db:"full_name"`
}

type Member struct {
	CourseID int64  `json:"course_id" db:"course_id"`
	UserID   string `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Role     Role   `json:"role" db:"role"`
}

// Viewer is the user acting on a course.
type Viewer struct {
	UserID string
	Role   Role // empty when not enrolled
	Admin  bool
}

// IsTeacher reports whether the viewer sees the course as a teacher.
func (v Viewer) IsTeacher() bool {
	return v.Admin || v.Role.IsTeacher()
}

// CanEdit reports whether the viewer may change course data.
func (v Viewer) CanEdit() bool {
	return v.Admin || v.Role.CanEdit()
}

func (v Viewer) IsStudent() bool {
	return v.Role == RoleStudent
}

type NewCourse struct {
	DegreeID  int64  `json:"degree_id" validate:"required"`
	Year      int    `json:"year" validate:"min=0,max=12"`
	ShortName string `json:"short_name" validate:"required,notblank,max=32"`
	FullName  string `json:"full_name" validate:"required,notblank,max=1024"`
}

func (nc *NewCourse) Clean() {
	nc.ShortName = strings.Join(strings.Fields(nc.ShortName), " ")
	nc.FullName = strings.Join(strings.Fields(nc.FullName), " ")
}

type UpdateCourse struct {
	DegreeID  *int64  `json:"degree_id"`
	Year      *int    `json:"year" validate:"omitempty,min=0,max=12"`
	ShortName *string `json:"short_name" validate:"omitempty,notblank,max=32"`
	FullName  *string `json:"full_name" validate:"omitempty,notblank,max=1024"`
}

type Enrolment struct {
	Role Role `json:"role" validate:"required,courserole"`
}

// Unenroller removes everything a user owns inside a course.
// Group, attendance and clipboard repositories implement it.
type Unenroller interface {
	RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error
}
