// Package hierarchy manages the institutional tree of the platform:
// countries, institutions, centers, degrees and the rooms of each center.
package hierarchy

import (
	"strings"

	"github.com/volatiletech/null/v8"
)

// Institution status bits.
const (
	StatusPending = 1 << iota // requested by a user, not yet accepted
	StatusRemoved             // hidden from listings

	statusAll = StatusPending | StatusRemoved
)

const (
	MaxShortNameLength = 32
	MaxFullNameLength  = 1024
	MaxWWWLength       = 255
)

// Level is a hierarchy level, used to scope aggregate queries such as maps.
type Level int

const (
	LevelSystem Level = iota
	LevelCountry
	LevelInstitution
	LevelCenter
	LevelDegree
	LevelCourse
)

func (l Level) String() string {
	switch l {
	case LevelSystem:
		return "system"
	case LevelCountry:
		return "country"
	case LevelInstitution:
		return "institution"
	case LevelCenter:
		return "center"
	case LevelDegree:
		return "degree"
	case LevelCourse:
		return "course"
	}
	return "unknown"
}

type Country struct {
	ID     int64  `json:"id" db:"id"`
	Alpha2 string `json:"alpha2" db:"alpha2"`
	Name   string `json:"name" db:"name"`
	WWW    string `json:"www" db:"www"`
}

type Institution struct {
	ID          int64       `json:"id" db:"id"`
	CountryID   int64       `json:"country_id" db:"country_id"`
	Status      int         `json:"status" db:"status"`
	RequesterID null.String `json:"requester_id" db:"requester_id"`
	ShortName   string      `json:"short_name" db:"short_name"`
	FullName    string      `json:"full_name" db:"full_name"`
	WWW         string      `json:"www" db:"www"`
}

func (ins Institution) IsPending() bool { return ins.Status&StatusPending != 0 }
func (ins Institution) IsRemoved() bool { return ins.Status&StatusRemoved != 0 }

type Center struct {
	ID            int64       `json:"id" db:"id"`
	InstitutionID int64       `json:"institution_id" db:"institution_id"`
	ShortName     string      `json:"short_name" db:"short_name"`
	FullName      string      `json:"full_name" db:"full_name"`
	WWW           string      `json:"www" db:"www"`
	Coordinates   Coordinates `json:"coordinates" db:"coordinates"`
}

type Degree struct {
	ID        int64  `json:"id" db:"id"`
	CenterID  int64  `json:"center_id" db:"center_id"`
	ShortName string `json:"short_name" db:"short_name"`
	FullName  string `json:"full_name" db:"full_name"`
	WWW       string `json:"www" db:"www"`
}

type Room struct {
	ID        int64  `json:"id" db:"id"`
	CenterID  int64  `json:"center_id" db:"center_id"`
	ShortName string `json:"short_name" db:"short_name"`
	FullName  string `json:"full_name" db:"full_name"`
	Capacity  int    `json:"capacity" db:"capacity"` // 0: unknown
}

// CenterFilter restricts center listings to a branch of the tree. Zero fields are ignored.
type CenterFilter struct {
	CountryID       int64
	InstitutionID   int64
	WithCoordinates bool
}

// Names is the request payload of create and rename operations.
type Names struct {
	ShortName string `json:"short_name" validate:"required,notblank,max=32"`
	FullName  string `json:"full_name" validate:"required,notblank,max=1024"`
}

func (n *Names) Clean() {
	n.ShortName = strings.Join(strings.Fields(n.ShortName), " ")
	n.FullName = strings.Join(strings.Fields(n.FullName), " ")
}

type NewCountry struct {
	Alpha2 string `json:"alpha2" validate:"required,country_code"`
	Name   string `json:"name" validate:"required,notblank,max=255"`
	WWW    string `json:"www" validate:"omitempty,url,max=255"`
}

type UpdateCountry struct {
	Name *string `json:"name" validate:"omitempty,notblank,max=255"`
	WWW  *string `json:"www" validate:"omitempty,url,max=255"`
}

type NewInstitution struct {
	CountryID int64 `json:"country_id" validate:"required"`
	Names
	WWW string `json:"www" validate:"omitempty,url,max=255"`
}

type UpdateInstitution struct {
	CountryID *int64  `json:"country_id"`
	ShortName *string `json:"short_name" validate:"omitempty,notblank,max=32"`
	FullName  *string `json:"full_name" validate:"omitempty,notblank,max=1024"`
	WWW       *string `json:"www" validate:"omitempty,url,max=255"`
	Status    *int    `json:"status" validate:"omitempty,min=0,max=3"`
}

type NewCenter struct {
	InstitutionID int64 `json:"institution_id" validate:"required"`
	Names
	WWW string `json:"www" validate:"omitempty,url,max=255"`
}

type UpdateCenter struct {
	InstitutionID *int64  `json:"institution_id"`
	ShortName     *string `json:"short_name" validate:"omitempty,notblank,max=32"`
	FullName      *string `json:"full_name" validate:"omitempty,notblank,max=1024"`
	WWW           *string `json:"www" validate:"omitempty,url,max=255"`
}

type NewDegree struct {
	CenterID int64 `json:"center_id" validate:"required"`
	Names
	WWW string `json:"www" validate:"omitempty,url,max=255"`
}

type UpdateDegree struct {
	ShortName *string `json:"short_name" validate:"omitempty,notblank,max=32"`
	FullName  *string `json:"full_name" validate:"omitempty,notblank,max=1024"`
	WWW       *string `json:"www" validate:"omitempty,url,max=255"`
}

type NewRoom struct {
	Names
	Capacity int `json:"capacity" validate:"min=0"`
}

type UpdateRoom struct {
	ShortName *string `json:"short_name" validate:"omitempty,notblank,max=32"`
	FullName  *string `json:"full_name" validate:"omitempty,notblank,max=1024"`
	Capacity  *int    `json:"capacity" validate:"omitempty,min=0"`
}
