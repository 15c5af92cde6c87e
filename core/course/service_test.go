package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/resource"
	"github.com/acanas/swad-core-sub004/core/user"
	"github.com/acanas/swad-core-sub004/testutil"
)

func TestService_CreateUpdate(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	svc := env.Courses
	ctx := context.Background()

	t.Run("names are unique within a year of a degree", func(t *testing.T) {
		_, err := svc.Create(ctx, course.NewCourse{DegreeID: seed.Degree.ID, Year: 1, ShortName: "fp", FullName: "Otra"})
		assert.IsType(t, &core.ValidationError{}, err)

		crs, err := svc.Create(ctx, course.NewCourse{DegreeID: seed.Degree.ID, Year: 2, ShortName: "FP", FullName: "Fundamentos de Programación"})
		require.NoError(t, err)
		assert.Equal(t, 2, crs.Year)

		year := 1
		_, err = svc.Update(ctx, crs.ID, course.UpdateCourse{Year: &year})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("unknown degree", func(t *testing.T) {
		_, err := svc.Create(ctx, course.NewCourse{DegreeID: 999, ShortName: "X", FullName: "X"})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("list sorted by full name", func(t *testing.T) {
		_, err := svc.Create(ctx, course.NewCourse{DegreeID: seed.Degree.ID, Year: 1, ShortName: "ALG", FullName: "Álgebra"})
		require.NoError(t, err)
		crss, err := svc.List(ctx, seed.Degree.ID)
		require.NoError(t, err)
		require.NotEmpty(t, crss)
		assert.Equal(t, "Álgebra", crss[0].FullName)
	})
}

func TestService_Enrolment(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	svc := env.Courses
	ctx := context.Background()

	t.Run("members by role", func(t *testing.T) {
		stds, err := svc.Members(ctx, seed.Course.ID, course.RoleStudent)
		require.NoError(t, err)
		require.Len(t, stds, 2)
		assert.Equal(t, "Ana Student", stds[0].Name)
		assert.Equal(t, "Berto Student", stds[1].Name)

		all, err := svc.Members(ctx, seed.Course.ID)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("change role", func(t *testing.T) {
		require.NoError(t, svc.Enrol(ctx, seed.Course.ID, seed.Student2.ID, course.RoleNonEditingTeacher))
		role, err := svc.GetRole(ctx, seed.Course.ID, seed.Student2.ID)
		require.NoError(t, err)
		assert.Equal(t, course.RoleNonEditingTeacher, role)
		require.NoError(t, svc.Enrol(ctx, seed.Course.ID, seed.Student2.ID, course.RoleStudent))
	})

	t.Run("invalid enrolments", func(t *testing.T) {
		assert.IsType(t, &core.ValidationError{}, svc.Enrol(ctx, seed.Course.ID, seed.Student1.ID, "guest"))
		err := svc.Enrol(ctx, 999, seed.Student1.ID, course.RoleStudent)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
		err = svc.Enrol(ctx, seed.Course.ID, "nobody", course.RoleStudent)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("not enrolled", func(t *testing.T) {
		_, err := svc.GetRole(ctx, seed.Course.ID, seed.Admin.ID)
		assert.Equal(t, course.ErrNotEnrolled, errors.Cause(err))
		assert.Equal(t, course.ErrNotEnrolled, errors.Cause(svc.Unenrol(ctx, seed.Course.ID, seed.Admin.ID)))
	})
}

func TestService_Unenrol(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	ctx := context.Background()
	crsID := seed.Course.ID

	typ, err := env.Groups.CreateType(ctx, crsID, group.NewType{Name: "Labs"})
	require.NoError(t, err)
	g, err := env.Groups.CreateGroup(ctx, crsID, typ.ID, group.NewGroup{Name: "L1", Open: true})
	require.NoError(t, err)
	_, err = env.Groups.ChangeMyGroups(ctx, crsID, seed.Student1.ID, true, []int64{g.ID})
	require.NoError(t, err)

	now := time.Now().UTC()
	ev, err := env.Attendance.Create(ctx, crsID, seed.Teacher.ID, attendance.NewEvent{
		Title: "Session 1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = env.Attendance.RegisterStudents(ctx, crsID, ev.ID, seed.TeacherViewer(),
		[]attendance.StudentRegistration{{UserID: seed.Student1.ID, Present: true}})
	require.NoError(t, err)

	_, err = env.Resources.Copy(ctx, seed.Student1.ID, crsID, resource.NewLink{Type: resource.TypeAttendance, Code: ev.ID})
	require.NoError(t, err)

	require.NoError(t, env.Courses.Unenrol(ctx, crsID, seed.Student1.ID))

	_, err = env.Courses.GetRole(ctx, crsID, seed.Student1.ID)
	assert.Equal(t, course.ErrNotEnrolled, errors.Cause(err))
	ids, err := env.Groups.MyGroupIDs(ctx, crsID, seed.Student1.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	sum, err := env.Attendance.Summary(ctx, crsID, seed.TeacherViewer(), nil, nil)
	require.NoError(t, err)
	for _, row := range sum.Rows {
		assert.NotEqual(t, seed.Student1.ID, row.UserID)
	}
	links, err := env.Resources.Clipboard(ctx, seed.Student1.ID, crsID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestService_Remove(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	ctx := context.Background()

	_, err := env.Groups.CreateType(ctx, seed.Course.ID, group.NewType{Name: "Labs"})
	require.NoError(t, err)

	require.NoError(t, env.Courses.Remove(ctx, seed.Course.ID))
	_, err = env.Courses.Get(ctx, seed.Course.ID)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	types, err := env.Groups.ListTypes(ctx, seed.Course.ID, group.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, types)

	assert.Equal(t, course.ErrNotFound, errors.Cause(env.Courses.Remove(ctx, seed.Course.ID)))
}
