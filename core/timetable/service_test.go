package timetable_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/timetable"
	inmemdb "github.com/acanas/swad-core-sub004/storage/database/inmem"
	"github.com/acanas/swad-core-sub004/testutil"
)

type slot struct {
	day   int
	start string
}

// classes returns the classes drawn in a view, keyed by weekday and start.
func classes(v timetable.View) map[slot]timetable.ClassType {
	out := make(map[slot]timetable.ClassType)
	for _, row := range v.Rows {
		for day, cells := range row.Days {
			for _, c := range cells {
				if c.IntervalType == timetable.IntervalFirst {
					out[slot{day, row.Start}] = c.ClassType
				}
			}
		}
	}
	return out
}

func TestService_CourseTimetable(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	ctx := context.Background()
	crsID := seed.Course.ID

	conf := *env.Conf
	conf.Timetable = core.TimetableConfig{StartHour: 8, EndHour: 12, MinutesPerInterval: 30}
	svc := timetable.NewService(inmemdb.NewTimetableRepository(env.DB), env.DB, env.Groups, &conf, env.Logger)

	typ, err := env.Groups.CreateType(ctx, crsID, group.NewType{Name: "Labs"})
	require.NoError(t, err)
	lab, err := env.Groups.CreateGroup(ctx, crsID, typ.ID, group.NewGroup{Name: "L1", Open: true})
	require.NoError(t, err)
	_, err = env.Groups.ChangeMyGroups(ctx, crsID, seed.Student1.ID, true, []int64{lab.ID})
	require.NoError(t, err)

	v, err := svc.ModifyCourseTimetable(ctx, crsID, timetable.Modification{
		Weekday: 0, Interval: 0, ClassType: timetable.ClassLecture, DurationMinutes: 120, Info: "Theory",
	})
	require.NoError(t, err)
	assert.True(t, v.Editing)
	assert.Len(t, v.Rows, 8)

	_, err = svc.ModifyCourseTimetable(ctx, crsID, timetable.Modification{
		Weekday: 1, Interval: 2, ClassType: timetable.ClassPractical, DurationMinutes: 60, GroupID: lab.ID,
	})
	require.NoError(t, err)

	mon8 := slot{0, "08:00"}
	tue9 := slot{1, "09:00"}

	t.Run("all groups", func(t *testing.T) {
		v, err := svc.CourseTimetable(ctx, crsID, seed.StudentViewer(seed.Student2), timetable.AllGroups, false)
		require.NoError(t, err)
		got := classes(v)
		assert.Equal(t, timetable.ClassLecture, got[mon8])
		assert.Equal(t, timetable.ClassPractical, got[tue9])
	})

	t.Run("only my groups", func(t *testing.T) {
		for _, tc := range []struct {
			viewer course.Viewer
			lab    bool
		}{
			{seed.StudentViewer(seed.Student1), true},
			{seed.StudentViewer(seed.Student2), false},
		} {
			v, err := svc.CourseTimetable(ctx, crsID, tc.viewer, timetable.MyGroups, false)
			require.NoError(t, err)
			got := classes(v)
			assert.Contains(t, got, mon8)
			_, ok := got[tue9]
			assert.Equal(t, tc.lab, ok, tc.viewer.UserID)
		}
	})

	t.Run("free a class", func(t *testing.T) {
		v, err := svc.ModifyCourseTimetable(ctx, crsID, timetable.Modification{Weekday: 1, Interval: 2, ClassType: timetable.ClassFree})
		require.NoError(t, err)
		assert.NotContains(t, classes(v), tue9)
	})

	t.Run("invalid modifications", func(t *testing.T) {
		for _, m := range []timetable.Modification{
			{Weekday: 0, Interval: 0, ClassType: timetable.ClassLecture, DurationMinutes: 30, GroupID: 999},
			{Weekday: 0, Interval: 0, ClassType: timetable.ClassTutoring, DurationMinutes: 30},
			{Weekday: 0, Interval: 1, ClassType: timetable.ClassLecture, DurationMinutes: 30},
			{Weekday: 7, Interval: 0, ClassType: timetable.ClassLecture, DurationMinutes: 30},
			{Weekday: 0, Interval: 8, ClassType: timetable.ClassLecture, DurationMinutes: 30},
		} {
			_, err := svc.ModifyCourseTimetable(ctx, crsID, m)
			assert.IsType(t, &core.ValidationError{}, err, "%+v", m)
		}
	})
}

func TestService_Tutoring(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	ctx := context.Background()
	svc := env.Timetable
	uid := seed.Teacher.ID
	start := svc.Range().MinuteOf(0)
	startStr := fmt.Sprintf("%02d:%02d", start/60, start%60)

	v, err := svc.ModifyTutoring(ctx, uid, timetable.Modification{
		Weekday: 2, Interval: 0, ClassType: timetable.ClassLecture, DurationMinutes: 60, GroupID: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, timetable.ClassTutoring, classes(v)[slot{2, startStr}])

	_, err = svc.ModifyCourseTimetable(ctx, seed.Course.ID, timetable.Modification{
		Weekday: 0, Interval: 0, ClassType: timetable.ClassLecture, DurationMinutes: 60,
	})
	require.NoError(t, err)

	t.Run("my timetable merges courses and tutoring", func(t *testing.T) {
		v, err := svc.MyTimetable(ctx, uid)
		require.NoError(t, err)
		assert.False(t, v.Editing)
		got := classes(v)
		assert.Equal(t, timetable.ClassTutoring, got[slot{2, startStr}])
		assert.Equal(t, timetable.ClassLecture, got[slot{0, startStr}])
	})

	t.Run("tutoring is private", func(t *testing.T) {
		v, err := svc.TutoringTimetable(ctx, seed.Student1.ID, false)
		require.NoError(t, err)
		assert.Empty(t, classes(v))
	})
}

func TestNewService_InvalidRange(t *testing.T) {
	env := testutil.NewEnv()
	conf := *env.Conf
	conf.Timetable = core.TimetableConfig{StartHour: 10, EndHour: 8, MinutesPerInterval: 7}
	svc := timetable.NewService(inmemdb.NewTimetableRepository(env.DB), env.DB, env.Groups, &conf, env.Logger)
	assert.Equal(t, timetable.DefaultRange, svc.Range())
}

func TestService_ModifyCourseTimetable_keepsStoredClasses(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	ctx := context.Background()
	crsID := seed.Course.ID

	conf := *env.Conf
	conf.Timetable = core.TimetableConfig{StartHour: 8, EndHour: 10, MinutesPerInterval: 30}
	repo := inmemdb.NewTimetableRepository(env.DB)
	svc := timetable.NewService(repo, env.DB, env.Groups, &conf, env.Logger)

	stored := []timetable.Class{
		{CourseID: crsID, Weekday: 0, StartMinute: 8*60 + 15, DurationMinutes: 45, ClassType: timetable.ClassLecture},
		{CourseID: crsID, Weekday: 1, StartMinute: 9*60 + 30, DurationMinutes: 90, ClassType: timetable.ClassLecture},
	}
	require.NoError(t, repo.ReplaceCourseClasses(ctx, crsID, stored))

	v, err := svc.ModifyCourseTimetable(ctx, crsID, timetable.Modification{
		Weekday: 2, Interval: 0, ClassType: timetable.ClassPractical, DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.True(t, v.Incomplete)

	saved, err := repo.ListCourseClasses(ctx, crsID)
	require.NoError(t, err)
	want := append(stored, timetable.Class{CourseID: crsID, Weekday: 2, StartMinute: 8 * 60, DurationMinutes: 30, ClassType: timetable.ClassPractical})
	assert.ElementsMatch(t, want, saved)
}
