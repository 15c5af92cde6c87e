// Package timetable builds the weekly timetables of courses and tutoring hours.
//
// A timetable is a grid of cells, one per weekday and interval of the day. Each cell holds up to
// MaxColumns side-by-side columns. A class occupies the same column of consecutive intervals of a day:
// its first interval is marked IntervalFirst and the following ones IntervalNext.
package timetable

import (
	"database/sql/driver"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
)

const (
	NumDays           = 7 // Monday to Sunday
	MaxColumns        = 3 // classes side by side in a cell
	MinicolumnsPerDay = 6 // least common multiple of 1..MaxColumns
	MaxInfoLength     = 127
)

type ClassType int

const (
	ClassFree ClassType = iota
	ClassLecture
	ClassPractical
	ClassTutoring
)

var classTypeNames = [...]string{"free", "lecture", "practical", "tutoring"}

func (ct ClassType) String() string {
	if ct < 0 || int(ct) >= len(classTypeNames) {
		return "unknown"
	}
	return classTypeNames[ct]
}

func (ct ClassType) IsValid() bool {
	return ct >= 0 && int(ct) < len(classTypeNames)
}

func ParseClassType(s string) (ClassType, error) {
	for i, name := range classTypeNames {
		if name == s {
			return ClassType(i), nil
		}
	}
	return ClassFree, errors.Errorf("invalid class type %q", s)
}

func (ct ClassType) MarshalText() ([]byte, error) {
	return []byte(ct.String()), nil
}

func (ct *ClassType) UnmarshalText(b []byte) error {
	parsed, err := ParseClassType(string(b))
	if err != nil {
		return err
	}
	*ct = parsed
	return nil
}

func (ct ClassType) Value() (driver.Value, error) {
	return ct.String(), nil
}

func (ct *ClassType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return ct.UnmarshalText([]byte(v))
	case []byte:
		return ct.UnmarshalText(v)
	}
	return errors.Errorf("cannot scan %T into ClassType", src)
}

type IntervalType int

const (
	IntervalFree IntervalType = iota
	IntervalFirst
	IntervalNext
)

func (it IntervalType) String() string {
	switch it {
	case IntervalFirst:
		return "first"
	case IntervalNext:
		return "next"
	}
	return "free"
}

func (it IntervalType) MarshalText() ([]byte, error) {
	return []byte(it.String()), nil
}

func (it *IntervalType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "free":
		*it = IntervalFree
	case "first":
		*it = IntervalFirst
	case "next":
		*it = IntervalNext
	default:
		return errors.Errorf("invalid interval type %q", b)
	}
	return nil
}

// Range is the part of the day shown in timetables.
type Range struct {
	StartHour          int `json:"start_hour"`
	EndHour            int `json:"end_hour"`
	MinutesPerInterval int `json:"minutes_per_interval"`
}

func (r Range) Validate() error {
	switch r.MinutesPerInterval {
	case 5, 15, 30:
	default:
		return errors.Errorf("minutes per interval must be 5, 15 or 30, got %d", r.MinutesPerInterval)
	}
	if r.StartHour < 0 || r.EndHour > 24 || r.StartHour >= r.EndHour {
		return errors.Errorf("invalid hour range %d-%d", r.StartHour, r.EndHour)
	}
	return nil
}

func (r Range) IntervalsPerDay() int {
	return (r.EndHour - r.StartHour) * 60 / r.MinutesPerInterval
}

// MinuteOf returns the minute of the day an interval starts at.
func (r Range) MinuteOf(interval int) int {
	return r.StartHour*60 + interval*r.MinutesPerInterval
}

// intervalOf returns the interval containing a minute of the day.
func (r Range) intervalOf(minute int) (int, bool) {
	offset := minute - r.StartHour*60
	if offset < 0 || offset >= (r.EndHour-r.StartHour)*60 {
		return 0, false
	}
	return offset / r.MinutesPerInterval, true
}

// intervalsFor returns the number of intervals covering a duration.
func (r Range) intervalsFor(minutes int) int {
	return (minutes + r.MinutesPerInterval - 1) / r.MinutesPerInterval
}

// Class is a stored class. Weekday 0 is Monday; times are minutes from midnight.
// Tutoring hours have no course.
type Class struct {
	CourseID        int64      `json:"course_id" db:"course_id"`
	GroupID         null.Int64 `json:"group_id" db:"group_id"`
	Weekday         int        `json:"weekday" db:"weekday"`
	StartMinute     int        `json:"start_minute" db:"start_minute"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	ClassType       ClassType  `json:"class_type" db:"class_type"`
	Info            string     `json:"info" db:"info"`
}

type Column struct {
	CourseID          int64        `json:"course_id,omitempty"`
	GroupID           null.Int64   `json:"group_id"`
	IntervalType      IntervalType `json:"interval_type"`
	ClassType         ClassType    `json:"class_type"`
	DurationIntervals int          `json:"duration_intervals"`
	Info              string       `json:"info"`

	// minutes is the stored duration, which may end inside the last interval.
	minutes int
}

type Cell struct {
	NumColumns int
	Columns    [MaxColumns]Column
}

type Table struct {
	Range Range
	Cells [NumDays][]Cell
	// Incomplete is set when some class could not be placed.
	Incomplete bool

	// outside holds the classes that could not be placed, kept when the table is saved.
	outside []Class
}

func NewTable(r Range) *Table {
	t := &Table{Range: r}
	n := r.IntervalsPerDay()
	for day := range t.Cells {
		t.Cells[day] = make([]Cell, n)
	}
	return t
}

// sortClasses orders classes by weekday, start, class type, info, group and longest first.
func sortClasses(classes []Class) {
	sort.SliceStable(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		switch {
		case a.Weekday != b.Weekday:
			return a.Weekday < b.Weekday
		case a.StartMinute != b.StartMinute:
			return a.StartMinute < b.StartMinute
		case a.ClassType != b.ClassType:
			return a.ClassType < b.ClassType
		case a.Info != b.Info:
			return a.Info < b.Info
		case a.GroupID.Int64 != b.GroupID.Int64:
			return a.GroupID.Int64 < b.GroupID.Int64
		}
		return a.DurationMinutes > b.DurationMinutes
	})
}

// Build places classes in a new table.
func Build(r Range, classes []Class) *Table {
	t := NewTable(r)
	sorted := make([]Class, len(classes))
	copy(sorted, classes)
	sortClasses(sorted)
	for _, c := range sorted {
		t.place(c)
	}
	return t
}

func (t *Table) place(c Class) {
	if c.DurationMinutes <= 0 || c.ClassType == ClassFree {
		return
	}
	interval, dur, ok := t.fit(c)
	if !ok {
		t.keep(c)
		return
	}

	cells := t.Cells[c.Weekday]
	cell := &cells[interval]
	column := -1
	for col := 0; col < MaxColumns; col++ {
		if cell.Columns[col].IntervalType == IntervalFree {
			column = col
			break
		}
	}
	if column < 0 {
		t.keep(c)
		return
	}
	for i := interval + 1; i < interval+dur; i++ {
		if cells[i].Columns[column].IntervalType != IntervalFree {
			t.keep(c)
			return
		}
	}

	cell.Columns[column] = Column{
		CourseID:          c.CourseID,
		GroupID:           c.GroupID,
		IntervalType:      IntervalFirst,
		ClassType:         c.ClassType,
		DurationIntervals: dur,
		Info:              c.Info,
		minutes:           c.DurationMinutes,
	}
	cell.NumColumns++
	for i := interval + 1; i < interval+dur; i++ {
		cells[i].Columns[column].IntervalType = IntervalNext
		cells[i].NumColumns++
	}
}

// fit returns the first interval and the number of intervals of c. A class fits when it starts
// on an interval boundary and ends within the range.
func (t *Table) fit(c Class) (interval, dur int, ok bool) {
	if c.Weekday < 0 || c.Weekday >= NumDays {
		return 0, 0, false
	}
	interval, ok = t.Range.intervalOf(c.StartMinute)
	if !ok || t.Range.MinuteOf(interval) != c.StartMinute {
		return 0, 0, false
	}
	dur = t.Range.intervalsFor(c.DurationMinutes)
	if interval+dur > len(t.Cells[c.Weekday]) {
		return 0, 0, false
	}
	return interval, dur, true
}

// keep sets aside a class that cannot be drawn so that saving the table preserves it.
func (t *Table) keep(c Class) {
	t.outside = append(t.outside, c)
	t.Incomplete = true
}

// Modification changes the class in one column of a cell.
type Modification struct {
	Weekday         int       `json:"weekday" validate:"weekday"`
	Interval        int       `json:"interval" validate:"min=0"`
	Column          int       `json:"column" validate:"min=0,max=2"`
	ClassType       ClassType `json:"class_type" validate:"enum"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=0"`
	GroupID         int64     `json:"group_id" validate:"min=0"` // 0: every group
	Info            string    `json:"info" validate:"max=127"`
}

// Modify frees the class starting at the modified column, if any, and places the new class
// when it is not free, lasts and the cell has room for it.
func (t *Table) Modify(m Modification) error {
	if m.Weekday < 0 || m.Weekday >= NumDays {
		return core.NewFieldValidationError("weekday", "invalid weekday")
	}
	cells := t.Cells[m.Weekday]
	if m.Interval < 0 || m.Interval >= len(cells) {
		return core.NewFieldValidationError("interval", "interval out of the timetable")
	}
	if m.Column < 0 || m.Column >= MaxColumns {
		return core.NewFieldValidationError("column", fmt.Sprintf("column must be between 0 and %d", MaxColumns-1))
	}

	cell := &cells[m.Interval]
	col := &cell.Columns[m.Column]
	switch col.IntervalType {
	case IntervalFirst:
		*col = Column{}
		cell.NumColumns--
	case IntervalNext:
		if m.ClassType != ClassFree {
			return core.NewFieldValidationError("column", "this column is occupied by another class")
		}
		return nil
	}

	dur := t.Range.intervalsFor(m.DurationMinutes)
	if m.ClassType == ClassFree || dur <= 0 {
		return nil
	}
	if cell.NumColumns >= MaxColumns {
		return core.NewFieldValidationError("column", "there is no room for another class in this cell")
	}
	minutes := m.DurationMinutes
	if m.Interval+dur > len(cells) {
		dur = len(cells) - m.Interval
		minutes = dur * t.Range.MinutesPerInterval
	}
	*col = Column{
		GroupID:           null.NewInt64(m.GroupID, m.GroupID > 0),
		IntervalType:      IntervalFirst,
		ClassType:         m.ClassType,
		DurationIntervals: dur,
		Info:              core.Truncate(core.CleanString(m.Info), MaxInfoLength),
		minutes:           minutes,
	}
	cell.NumColumns++
	return nil
}

// Classes returns the classes of the table: the first intervals that last, plus the classes set aside
// by Build.
func (t *Table) Classes(courseID int64) []Class {
	var classes []Class
	for day, cells := range t.Cells {
		for interval, cell := range cells {
			for _, col := range cell.Columns {
				if col.IntervalType != IntervalFirst || col.DurationIntervals <= 0 {
					continue
				}
				cid := col.CourseID
				if cid == 0 {
					cid = courseID
				}
				minutes := col.minutes
				if minutes <= 0 {
					minutes = col.DurationIntervals * t.Range.MinutesPerInterval
				}
				classes = append(classes, Class{
					CourseID:        cid,
					GroupID:         col.GroupID,
					Weekday:         day,
					StartMinute:     t.Range.MinuteOf(interval),
					DurationMinutes: minutes,
					ClassType:       col.ClassType,
					Info:            col.Info,
				})
			}
		}
	}
	return append(classes, t.outside...)
}

// ColumnsToDraw returns the number of columns needed to draw a cell: the maximum number of columns
// of all the intervals linked to it through the classes they share.
func (t *Table) ColumnsToDraw(day, interval int) int {
	checked := make([]bool, len(t.Cells[day]))
	return t.columnsToDraw(day, interval, checked)
}

func (t *Table) columnsToDraw(day, interval int, checked []bool) int {
	cells := t.Cells[day]
	cols := cells[interval].NumColumns
	if checked[interval] {
		return cols
	}
	checked[interval] = true

	span := func(first int, dur int) {
		for i := first; i < first+dur && i < len(cells); i++ {
			if !checked[i] {
				if c := t.columnsToDraw(day, i, checked); c > cols {
					cols = c
				}
			}
		}
	}
	for column, col := range cells[interval].Columns {
		switch col.IntervalType {
		case IntervalFirst:
			span(interval+1, col.DurationIntervals-1)
		case IntervalNext:
			first := interval
			for first > 0 && cells[first].Columns[column].IntervalType == IntervalNext {
				first--
			}
			span(first, cells[first].Columns[column].DurationIntervals)
		}
	}
	return cols
}
