package timetable

import (
	"fmt"

	"github.com/volatiletech/null/v8"
)

// LayoutCell is a cell as drawn: Colspan counts minicolumns of the day, Rowspan intervals.
type LayoutCell struct {
	Column            int          `json:"column"`
	Colspan           int          `json:"colspan"`
	Rowspan           int          `json:"rowspan"`
	IntervalType      IntervalType `json:"interval_type"`
	ClassType         ClassType    `json:"class_type"`
	CourseID          int64        `json:"course_id,omitempty"`
	GroupID           null.Int64   `json:"group_id"`
	DurationIntervals int          `json:"duration_intervals"`
	Info              string       `json:"info,omitempty"`
}

type LayoutRow struct {
	Interval int            `json:"interval"`
	Start    string         `json:"start"` // hh:mm
	Days     [][]LayoutCell `json:"days"`
}

// Layout returns the rows of the table as drawn. Intervals continuing a class draw nothing in
// that column. When editing, every free column is drawn on its own so it can be modified, and
// cells with room get an extra free column. Otherwise consecutive free columns are merged.
func (t *Table) Layout(editing bool) []LayoutRow {
	n := t.Range.IntervalsPerDay()
	rows := make([]LayoutRow, n)
	for interval := 0; interval < n; interval++ {
		minute := t.Range.MinuteOf(interval)
		row := LayoutRow{
			Interval: interval,
			Start:    fmt.Sprintf("%02d:%02d", minute/60, minute%60),
			Days:     make([][]LayoutCell, NumDays),
		}
		for day := 0; day < NumDays; day++ {
			row.Days[day] = t.layoutCell(day, interval, editing)
		}
		rows[interval] = row
	}
	return rows
}

func (t *Table) layoutCell(day, interval int, editing bool) []LayoutCell {
	cols := t.ColumnsToDraw(day, interval)
	if !editing && cols == 0 {
		cols = 1
	}
	if editing && cols < MaxColumns {
		cols++
	}
	colspan := MinicolumnsPerDay / cols

	cells := []LayoutCell{}
	var freeSpan, freeFrom int
	flush := func() {
		if freeSpan > 0 {
			cells = append(cells, LayoutCell{Column: freeFrom, Colspan: freeSpan, Rowspan: 1})
			freeSpan = 0
		}
	}
	for column := 0; column < cols; column++ {
		col := t.Cells[day][interval].Columns[column]
		switch col.IntervalType {
		case IntervalFree:
			if editing {
				cells = append(cells, LayoutCell{Column: column, Colspan: colspan, Rowspan: 1})
				continue
			}
			if freeSpan == 0 {
				freeFrom = column
			}
			freeSpan += colspan
		case IntervalFirst:
			flush()
			cells = append(cells, LayoutCell{
				Column:            column,
				Colspan:           colspan,
				Rowspan:           col.DurationIntervals,
				IntervalType:      IntervalFirst,
				ClassType:         col.ClassType,
				CourseID:          col.CourseID,
				GroupID:           col.GroupID,
				DurationIntervals: col.DurationIntervals,
				Info:              col.Info,
			})
		case IntervalNext:
			flush()
		}
	}
	flush()
	return cells
}
