// Package resource keeps the clipboard where teachers copy links to course resources.
package resource

import (
	"time"
)

const MaxTitleLength = 127

// Type is the kind of resource a link points to.
type Type string

const (
	TypeNone        Type = "non"
	TypeAssignment  Type = "asg"
	TypeProject     Type = "prj"
	TypeCallForExam Type = "cfe"
	TypeExam        Type = "exa"
	TypeGame        Type = "gam"
	TypeRubric      Type = "rub"
	TypeDocument    Type = "doc"
	TypeMarks       Type = "mrk"
	TypeAttendance  Type = "att"
	TypeForumThread Type = "for"
	TypeSurvey      Type = "svy"
)

var AllTypes = []Type{
	TypeNone, TypeAssignment, TypeProject, TypeCallForExam, TypeExam, TypeGame,
	TypeRubric, TypeDocument, TypeMarks, TypeAttendance, TypeForumThread, TypeSurvey,
}

func (t Type) Valid() bool {
	for _, typ := range AllTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// Link points to a resource of a course.
type Link struct {
	Type     Type      `json:"type" db:"type"`
	Code     int64     `json:"code" db:"code"`
	Title    string    `json:"title" db:"-"`
	CopyTime time.Time `json:"copy_time" db:"copy_time"`
}

type NewLink struct {
	Type Type  `json:"type" validate:"required,rsctype"`
	Code int64 `json:"code" validate:"min=0"`
}
