package timetable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
)

// 8:00 to 10:00 in half hours: intervals 0 (8:00), 1 (8:30), 2 (9:00) and 3 (9:30).
var testRange = Range{StartHour: 8, EndHour: 10, MinutesPerInterval: 30}

func lecture(weekday, hour, minute, duration int) Class {
	return Class{
		CourseID:        1,
		Weekday:         weekday,
		StartMinute:     hour*60 + minute,
		DurationMinutes: duration,
		ClassType:       ClassLecture,
	}
}

func TestRange_Validate(t *testing.T) {
	assert.NoError(t, testRange.Validate())
	assert.NoError(t, DefaultRange.Validate())
	assert.Error(t, Range{StartHour: 8, EndHour: 10, MinutesPerInterval: 20}.Validate())
	assert.Error(t, Range{StartHour: 10, EndHour: 8, MinutesPerInterval: 30}.Validate())
	assert.Error(t, Range{StartHour: 8, EndHour: 25, MinutesPerInterval: 30}.Validate())
	assert.Equal(t, 4, testRange.IntervalsPerDay())
	assert.Equal(t, 9*60+30, testRange.MinuteOf(3))
}

func TestClassType_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		CT ClassType `json:"ct"`
	}{ClassPractical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ct":"practical"}`, string(b))

	var m Modification
	require.NoError(t, json.Unmarshal([]byte(`{"class_type":"tutoring"}`), &m))
	assert.Equal(t, ClassTutoring, m.ClassType)
	assert.Error(t, json.Unmarshal([]byte(`{"class_type":"seminar"}`), &m))
}

func TestBuild(t *testing.T) {
	t.Run("single class spans its intervals", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 90)})
		assert.False(t, tbl.Incomplete)
		cells := tbl.Cells[0]
		assert.Equal(t, IntervalFirst, cells[0].Columns[0].IntervalType)
		assert.Equal(t, 3, cells[0].Columns[0].DurationIntervals)
		assert.Equal(t, IntervalNext, cells[1].Columns[0].IntervalType)
		assert.Equal(t, IntervalNext, cells[2].Columns[0].IntervalType)
		assert.Equal(t, IntervalFree, cells[3].Columns[0].IntervalType)
		for i, want := range []int{1, 1, 1, 0} {
			assert.Equal(t, want, cells[i].NumColumns, "interval %d", i)
		}
	})

	t.Run("overlapping classes take the first free column", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(1, 8, 30, 30), lecture(1, 8, 0, 90)})
		assert.False(t, tbl.Incomplete)
		cells := tbl.Cells[1]
		assert.Equal(t, IntervalFirst, cells[0].Columns[0].IntervalType)
		assert.Equal(t, IntervalNext, cells[1].Columns[0].IntervalType)
		assert.Equal(t, IntervalFirst, cells[1].Columns[1].IntervalType)
		assert.Equal(t, 2, cells[1].NumColumns)
	})

	t.Run("a full cell makes the table incomplete", func(t *testing.T) {
		classes := []Class{lecture(2, 9, 0, 30), lecture(2, 9, 0, 30), lecture(2, 9, 0, 30), lecture(2, 9, 0, 30)}
		tbl := Build(testRange, classes)
		assert.True(t, tbl.Incomplete)
		assert.Equal(t, MaxColumns, tbl.Cells[2][2].NumColumns)
		assert.Len(t, tbl.Classes(1), len(classes))
	})

	t.Run("classes out of range are kept but not drawn", func(t *testing.T) {
		early := lecture(3, 7, 0, 60)
		tbl := Build(testRange, []Class{early, lecture(3, 8, 0, 30)})
		assert.True(t, tbl.Incomplete)
		assert.Equal(t, 1, tbl.Cells[3][0].NumColumns)
		assert.Contains(t, tbl.Classes(1), early)
	})

	t.Run("classes off the grid are kept but not drawn", func(t *testing.T) {
		offStart := lecture(0, 8, 15, 45)
		pastEnd := lecture(1, 9, 30, 90)
		tbl := Build(testRange, []Class{offStart, pastEnd})
		assert.True(t, tbl.Incomplete)
		for i := range tbl.Cells[0] {
			assert.Equal(t, 0, tbl.Cells[0][i].NumColumns, "interval %d", i)
			assert.Equal(t, 0, tbl.Cells[1][i].NumColumns, "interval %d", i)
		}
		assert.ElementsMatch(t, []Class{offStart, pastEnd}, tbl.Classes(1))
	})

	t.Run("free classes and empty durations are ignored", func(t *testing.T) {
		c := lecture(0, 8, 0, 30)
		c.ClassType = ClassFree
		tbl := Build(testRange, []Class{c, lecture(0, 8, 0, 0)})
		assert.False(t, tbl.Incomplete)
		assert.Empty(t, tbl.Classes(1))
	})
}

func TestTable_Classes(t *testing.T) {
	in := []Class{
		lecture(0, 8, 0, 60),
		{CourseID: 1, GroupID: null.Int64From(7), Weekday: 0, StartMinute: 8 * 60, DurationMinutes: 30, ClassType: ClassPractical, Info: "Lab 1"},
		lecture(6, 9, 30, 30),
	}
	out := Build(testRange, in).Classes(1)
	assert.ElementsMatch(t, in, out)
}

func TestTable_ModifyKeepsOtherClasses(t *testing.T) {
	stored := []Class{
		lecture(0, 8, 15, 45), // starts inside an interval
		lecture(1, 9, 30, 90), // ends after the range
		lecture(2, 8, 0, 45),  // ends inside an interval
		lecture(3, 7, 0, 60),  // before the range
		lecture(4, 9, 0, 30),  // fits
	}
	tbl := Build(testRange, stored)
	require.True(t, tbl.Incomplete)
	assert.Equal(t, 2, tbl.Cells[2][0].Columns[0].DurationIntervals)

	require.NoError(t, tbl.Modify(Modification{Weekday: 5, Interval: 0, Column: 0, ClassType: ClassPractical, DurationMinutes: 30}))
	added := Class{CourseID: 1, Weekday: 5, StartMinute: 8 * 60, DurationMinutes: 30, ClassType: ClassPractical}
	assert.ElementsMatch(t, append(stored, added), tbl.Classes(1))

	// saved and rebuilt, the table is the same
	assert.ElementsMatch(t, append(stored, added), Build(testRange, tbl.Classes(1)).Classes(1))
}

func TestIntervalType_JSON(t *testing.T) {
	for _, it := range []IntervalType{IntervalFree, IntervalFirst, IntervalNext} {
		b, err := json.Marshal(LayoutCell{IntervalType: it})
		require.NoError(t, err)
		var got LayoutCell
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, it, got.IntervalType)
	}
	var it IntervalType
	assert.Error(t, it.UnmarshalText([]byte("last")))
}

func TestTable_ColumnsToDraw(t *testing.T) {
	tbl := Build(testRange, []Class{lecture(0, 8, 0, 90), lecture(0, 8, 30, 30)})
	assert.Equal(t, 2, tbl.ColumnsToDraw(0, 0))
	assert.Equal(t, 2, tbl.ColumnsToDraw(0, 1))
	assert.Equal(t, 2, tbl.ColumnsToDraw(0, 2))
	assert.Equal(t, 0, tbl.ColumnsToDraw(0, 3))
	assert.Equal(t, 0, tbl.ColumnsToDraw(1, 0))

	// chain: 8:00-9:00 in column 0, 8:30-9:30 in column 1, 9:00-10:00 in column 0 again
	tbl = Build(testRange, []Class{lecture(2, 8, 0, 60), lecture(2, 8, 30, 60), lecture(2, 9, 0, 60)})
	for i := 0; i < 4; i++ {
		assert.Equal(t, 2, tbl.ColumnsToDraw(2, i), "interval %d", i)
	}
}

func TestTable_Modify(t *testing.T) {
	t.Run("place a class in a free cell", func(t *testing.T) {
		tbl := NewTable(testRange)
		err := tbl.Modify(Modification{Weekday: 1, Interval: 1, Column: 0, ClassType: ClassPractical, DurationMinutes: 60, GroupID: 3, Info: " Lab "})
		require.NoError(t, err)
		col := tbl.Cells[1][1].Columns[0]
		assert.Equal(t, IntervalFirst, col.IntervalType)
		assert.Equal(t, 2, col.DurationIntervals)
		assert.Equal(t, null.Int64From(3), col.GroupID)
		assert.Equal(t, "Lab", col.Info)

		classes := tbl.Classes(5)
		require.Len(t, classes, 1)
		assert.Equal(t, Class{
			CourseID: 5, GroupID: null.Int64From(3), Weekday: 1, StartMinute: 8*60 + 30,
			DurationMinutes: 60, ClassType: ClassPractical, Info: "Lab",
		}, classes[0])
	})

	t.Run("free a class", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 60)})
		require.NoError(t, tbl.Modify(Modification{Weekday: 0, Interval: 0, Column: 0, ClassType: ClassFree}))
		assert.Equal(t, 0, tbl.Cells[0][0].NumColumns)
		assert.Empty(t, tbl.Classes(1))
	})

	t.Run("replace a class", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 60)})
		require.NoError(t, tbl.Modify(Modification{Weekday: 0, Interval: 0, Column: 0, ClassType: ClassPractical, DurationMinutes: 30}))
		classes := tbl.Classes(1)
		require.Len(t, classes, 1)
		assert.Equal(t, ClassPractical, classes[0].ClassType)
		assert.Equal(t, 30, classes[0].DurationMinutes)
	})

	t.Run("continuation of another class", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 60)})
		err := tbl.Modify(Modification{Weekday: 0, Interval: 1, Column: 0, ClassType: ClassLecture, DurationMinutes: 30})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("replace a class in a full cell", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 30), lecture(0, 8, 0, 30), lecture(0, 8, 0, 30)})
		require.Equal(t, MaxColumns, tbl.Cells[0][0].NumColumns)
		err := tbl.Modify(Modification{Weekday: 0, Interval: 0, Column: 2, ClassType: ClassTutoring, DurationMinutes: 30})
		require.NoError(t, err)
		assert.Equal(t, MaxColumns, tbl.Cells[0][0].NumColumns)
		assert.Equal(t, ClassTutoring, tbl.Cells[0][0].Columns[2].ClassType)
	})

	t.Run("continuation can be left free", func(t *testing.T) {
		tbl := Build(testRange, []Class{lecture(0, 8, 0, 60)})
		require.NoError(t, tbl.Modify(Modification{Weekday: 0, Interval: 1, Column: 0, ClassType: ClassFree}))
		assert.Len(t, tbl.Classes(1), 1)
	})

	t.Run("out of the grid", func(t *testing.T) {
		tbl := NewTable(testRange)
		assert.Error(t, tbl.Modify(Modification{Weekday: 7}))
		assert.Error(t, tbl.Modify(Modification{Interval: 4}))
		assert.Error(t, tbl.Modify(Modification{Column: 3}))
	})
}

func TestTable_Layout(t *testing.T) {
	tbl := Build(testRange, []Class{lecture(0, 8, 0, 90), lecture(0, 8, 30, 30)})

	t.Run("viewing", func(t *testing.T) {
		rows := tbl.Layout(false)
		require.Len(t, rows, 4)
		assert.Equal(t, "08:00", rows[0].Start)
		assert.Equal(t, "09:30", rows[3].Start)

		assert.Equal(t, []LayoutCell{
			{Column: 0, Colspan: 3, Rowspan: 3, IntervalType: IntervalFirst, ClassType: ClassLecture, CourseID: 1, DurationIntervals: 3},
			{Column: 1, Colspan: 3, Rowspan: 1},
		}, rows[0].Days[0])
		assert.Equal(t, []LayoutCell{
			{Column: 1, Colspan: 3, Rowspan: 1, IntervalType: IntervalFirst, ClassType: ClassLecture, CourseID: 1, DurationIntervals: 1},
		}, rows[1].Days[0])
		assert.Equal(t, []LayoutCell{{Column: 0, Colspan: 6, Rowspan: 1}}, rows[3].Days[0])
		assert.Equal(t, []LayoutCell{{Column: 0, Colspan: 6, Rowspan: 1}}, rows[0].Days[6])
	})

	t.Run("editing", func(t *testing.T) {
		rows := tbl.Layout(true)
		cells := rows[0].Days[0]
		require.Len(t, cells, 3)
		assert.Equal(t, IntervalFirst, cells[0].IntervalType)
		assert.Equal(t, LayoutCell{Column: 1, Colspan: 2, Rowspan: 1}, cells[1])
		assert.Equal(t, LayoutCell{Column: 2, Colspan: 2, Rowspan: 1}, cells[2])

		// an empty day offers a single free column
		assert.Equal(t, []LayoutCell{{Column: 0, Colspan: 6, Rowspan: 1}}, rows[0].Days[3])
	})
}
