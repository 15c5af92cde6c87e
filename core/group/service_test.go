package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/testutil"
)

type fixture struct {
	env   *testutil.Env
	seed  testutil.Seed
	labs  group.Type // single enrolment
	extra group.Type // multiple enrolment
	l1    group.Group
	l2    group.Group
	e1    group.Group
	e2    group.Group
}

func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv()
	f := fixture{env: env, seed: env.Seed(t)}
	ctx := context.Background()
	crsID := f.seed.Course.ID
	var err error

	f.labs, err = env.Groups.CreateType(ctx, crsID, group.NewType{Name: "Labs", Mandatory: true})
	require.NoError(t, err)
	f.extra, err = env.Groups.CreateType(ctx, crsID, group.NewType{Name: "Seminars", Multiple: true})
	require.NoError(t, err)

	one := 1
	f.l1, err = env.Groups.CreateGroup(ctx, crsID, f.labs.ID, group.NewGroup{Name: "L1", Open: true, MaxStudents: &one})
	require.NoError(t, err)
	f.l2, err = env.Groups.CreateGroup(ctx, crsID, f.labs.ID, group.NewGroup{Name: "L2", Open: true, RoomID: f.seed.Room.ID})
	require.NoError(t, err)
	f.e1, err = env.Groups.CreateGroup(ctx, crsID, f.extra.ID, group.NewGroup{Name: "S1", Open: true})
	require.NoError(t, err)
	f.e2, err = env.Groups.CreateGroup(ctx, crsID, f.extra.ID, group.NewGroup{Name: "S2"})
	require.NoError(t, err)
	return f
}

func TestService_Types(t *testing.T) {
	f := newFixture(t)
	svc := f.env.Groups
	ctx := context.Background()
	crsID := f.seed.Course.ID

	t.Run("list with groups sorted by name", func(t *testing.T) {
		_, err := svc.CreateType(ctx, crsID, group.NewType{Name: "Empty"})
		require.NoError(t, err)

		types, err := svc.ListTypes(ctx, crsID, group.ListFilter{})
		require.NoError(t, err)
		require.Len(t, types, 3)
		assert.Equal(t, "Empty", types[0].Name)
		assert.Equal(t, "Labs", types[1].Name)
		require.Len(t, types[1].Groups, 2)
		assert.Equal(t, "L1", types[1].Groups[0].Name)

		types, err = svc.ListTypes(ctx, crsID, group.ListFilter{OnlyWithGroups: true})
		require.NoError(t, err)
		assert.Len(t, types, 2)
	})

	t.Run("names are unique in a course", func(t *testing.T) {
		_, err := svc.CreateType(ctx, crsID, group.NewType{Name: " labs "})
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.CreateGroup(ctx, crsID, f.labs.ID, group.NewGroup{Name: "l1"})
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.CreateGroup(ctx, crsID, f.extra.ID, group.NewGroup{Name: "L1"})
		assert.NoError(t, err)
	})

	t.Run("open time in the past is discarded", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		typ, err := svc.UpdateType(ctx, crsID, f.extra.ID, group.UpdateType{OpenTime: &past})
		require.NoError(t, err)
		assert.False(t, typ.MustBeOpened)
		assert.False(t, typ.OpenTime.Valid)
	})

	t.Run("type of another course", func(t *testing.T) {
		_, err := svc.GetType(ctx, crsID+1, f.labs.ID)
		assert.Equal(t, group.ErrTypeNotFound, errors.Cause(err))
		_, err = svc.GetGroup(ctx, crsID+1, f.l1.ID)
		assert.Equal(t, group.ErrNotFound, errors.Cause(err))
	})

	t.Run("unknown room", func(t *testing.T) {
		bad := int64(999)
		_, err := svc.UpdateGroup(ctx, crsID, f.l2.ID, group.UpdateGroup{RoomID: &bad})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("limit of students", func(t *testing.T) {
		for _, tc := range []struct {
			in    int
			valid bool
		}{
			{-1, false},
			{0, true},
			{30, true},
			{group.MaxStudentsLimit + 1, false},
		} {
			lim := group.MaxStudentsFromInput(tc.in)
			assert.Equal(t, tc.valid, lim.Valid, tc.in)
		}
	})
}

func TestService_ChangeMyGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("one group of a single type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.env.Groups.ChangeMyGroups(ctx, f.seed.Course.ID, f.seed.Student1.ID, true, []int64{f.l1.ID, f.l2.ID})
		assert.IsType(t, &core.ValidationError{}, err)

		ids, err := f.env.Groups.MyGroupIDs(ctx, f.seed.Course.ID, f.seed.Student1.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("several groups of a multiple type", func(t *testing.T) {
		f := newFixture(t)
		open := true
		_, err := f.env.Groups.UpdateGroup(ctx, f.seed.Course.ID, f.e2.ID, group.UpdateGroup{Open: &open})
		require.NoError(t, err)

		ch, err := f.env.Groups.ChangeMyGroups(ctx, f.seed.Course.ID, f.seed.Student1.ID, true, []int64{f.e1.ID, f.e2.ID, f.l2.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{f.e1.ID, f.e2.ID, f.l2.ID}, ch.Added)
		assert.Empty(t, ch.Removed)

		ch, err = f.env.Groups.ChangeMyGroups(ctx, f.seed.Course.ID, f.seed.Student1.ID, true, []int64{f.e1.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{f.e2.ID, f.l2.ID}, ch.Removed)
		assert.Empty(t, ch.Added)
		assert.True(t, ch.Changed())
	})

	t.Run("closed and full groups", func(t *testing.T) {
		f := newFixture(t)
		crsID := f.seed.Course.ID

		_, err := f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.e2.ID})
		assert.Equal(t, group.ErrGroupClosed, errors.Cause(err))

		_, err = f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.l1.ID})
		require.NoError(t, err)
		_, err = f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student2.ID, true, []int64{f.l1.ID})
		assert.Equal(t, group.ErrGroupFull, errors.Cause(err))

		closed := false
		_, err = f.env.Groups.UpdateGroup(ctx, crsID, f.l1.ID, group.UpdateGroup{Open: &closed})
		require.NoError(t, err)
		_, err = f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.l2.ID})
		assert.Equal(t, group.ErrGroupClosed, errors.Cause(err))

		// unchanged after the failed attempt
		ids, err := f.env.Groups.MyGroupIDs(ctx, crsID, f.seed.Student1.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{f.l1.ID}, ids)
	})

	t.Run("teachers skip the group rules", func(t *testing.T) {
		f := newFixture(t)
		ch, err := f.env.Groups.ChangeMyGroups(ctx, f.seed.Course.ID, f.seed.Teacher.ID, false, []int64{f.l1.ID, f.l2.ID, f.e2.ID})
		require.NoError(t, err)
		assert.Len(t, ch.Added, 3)
	})

	t.Run("group of another course", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.env.Groups.ChangeMyGroups(ctx, f.seed.Course.ID, f.seed.Student1.ID, true, []int64{999})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestService_ChangeUserGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crsID := f.seed.Course.ID

	_, err := f.env.Groups.ChangeUserGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.l1.ID})
	require.NoError(t, err)

	// full and closed groups are allowed when a teacher moves a student
	ch, err := f.env.Groups.ChangeUserGroups(ctx, crsID, f.seed.Student2.ID, true, []int64{f.l1.ID, f.e2.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.l1.ID, f.e2.ID}, ch.Added)

	// single enrolment is still enforced
	_, err = f.env.Groups.ChangeUserGroups(ctx, crsID, f.seed.Student2.ID, true, []int64{f.l1.ID, f.l2.ID})
	assert.IsType(t, &core.ValidationError{}, err)

	mbrs, err := f.env.Groups.Members(ctx, crsID, f.l1.ID)
	require.NoError(t, err)
	require.Len(t, mbrs, 2)
	assert.Equal(t, "Ana Student", mbrs[0].Name)
	assert.Equal(t, "Berto Student", mbrs[1].Name)
}

func TestService_EnrolUserInGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crsID := f.seed.Course.ID
	uid := f.seed.Student1.ID

	_, err := f.env.Groups.EnrolUserInGroups(ctx, crsID, uid, []int64{f.l1.ID, f.e1.ID})
	require.NoError(t, err)

	ch, err := f.env.Groups.EnrolUserInGroups(ctx, crsID, uid, []int64{f.l2.ID, f.e2.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.l1.ID}, ch.Removed)
	assert.ElementsMatch(t, []int64{f.l2.ID, f.e2.ID}, ch.Added)

	ids, err := f.env.Groups.MyGroupIDs(ctx, crsID, uid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.l2.ID, f.e1.ID, f.e2.ID}, ids)

	t.Run("remove", func(t *testing.T) {
		n, err := f.env.Groups.RemoveUserFromGroups(ctx, crsID, uid, []int64{f.e1.ID, f.e2.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = f.env.Groups.RemoveUserFromAllGroupsInCourse(ctx, crsID, uid)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = f.env.Groups.RemoveUserFromAllGroupsInCourse(ctx, crsID, uid)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestService_StudentsWithoutGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crsID := f.seed.Course.ID

	_, err := f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.l2.ID})
	require.NoError(t, err)

	mbrs, err := f.env.Groups.StudentsWithoutGroup(ctx, crsID, f.labs.ID)
	require.NoError(t, err)
	require.Len(t, mbrs, 1)
	assert.Equal(t, f.seed.Student2.ID, mbrs[0].UserID)

	t.Run("mandatory types", func(t *testing.T) {
		n, err := f.env.Groups.NumMandatoryTypesIDontBelong(ctx, crsID, f.seed.Student2.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = f.env.Groups.NumMandatoryTypesIDontBelong(ctx, crsID, f.seed.Student1.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestService_OpenGroupsAutomatically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crsID := f.seed.Course.ID

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	group.NowFunc = func() time.Time { return now }
	defer func() { group.NowFunc = func() time.Time { return time.Now().UTC() } }()

	openAt := now.Add(time.Hour)
	typ, err := f.env.Groups.UpdateType(ctx, crsID, f.extra.ID, group.UpdateType{OpenTime: &openAt})
	require.NoError(t, err)
	assert.True(t, typ.MustBeOpened)

	n, err := f.env.Groups.OpenGroupsAutomatically(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.env.Groups.OpenGroupsAutomatically(ctx, openAt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	typ, err = f.env.Groups.GetType(ctx, crsID, f.extra.ID)
	require.NoError(t, err)
	assert.False(t, typ.MustBeOpened)
	for _, g := range typ.Groups {
		assert.True(t, g.Open, g.Name)
	}

	n, err = f.env.Groups.OpenGroupsAutomatically(ctx, openAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_IBelongTo(t *testing.T) {
	f := newFixture(t)
	ctx := group.WithCache(context.Background())
	crsID := f.seed.Course.ID
	uid := f.seed.Student1.ID

	belongs, err := f.env.Groups.IBelongTo(ctx, f.l2.ID, uid)
	require.NoError(t, err)
	assert.False(t, belongs)

	// changes made through the service invalidate the request cache
	_, err = f.env.Groups.ChangeMyGroups(ctx, crsID, uid, true, []int64{f.l2.ID})
	require.NoError(t, err)
	belongs, err = f.env.Groups.IBelongTo(ctx, f.l2.ID, uid)
	require.NoError(t, err)
	assert.True(t, belongs)

	// changes made behind its back are not seen until the request ends
	_, err = f.env.Groups.RemoveUserFromAllGroupsInCourse(context.Background(), crsID, uid)
	require.NoError(t, err)
	belongs, err = f.env.Groups.IBelongTo(ctx, f.l2.ID, uid)
	require.NoError(t, err)
	assert.True(t, belongs)

	belongs, err = f.env.Groups.IBelongTo(context.Background(), f.l2.ID, uid)
	require.NoError(t, err)
	assert.False(t, belongs)
}

func TestService_RemoveType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crsID := f.seed.Course.ID

	_, err := f.env.Groups.ChangeMyGroups(ctx, crsID, f.seed.Student1.ID, true, []int64{f.l2.ID})
	require.NoError(t, err)

	require.NoError(t, f.env.Groups.RemoveType(ctx, crsID, f.labs.ID))
	_, err = f.env.Groups.GetGroup(ctx, crsID, f.l2.ID)
	assert.Equal(t, group.ErrNotFound, errors.Cause(err))
	ids, err := f.env.Groups.MyGroupIDs(ctx, crsID, f.seed.Student1.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
