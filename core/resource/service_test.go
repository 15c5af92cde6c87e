package resource_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/resource"
	"github.com/acanas/swad-core-sub004/testutil"
)

func TestService_Clipboard(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	svc := env.Resources
	ctx := context.Background()
	crsID := seed.Course.ID
	uid := seed.Teacher.ID

	now := time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC)
	resource.NowFunc = func() time.Time { return now }
	defer func() { resource.NowFunc = func() time.Time { return time.Now().UTC() } }()

	ev, err := env.Attendance.Create(ctx, crsID, uid, attendance.NewEvent{
		Title: "Session 1", StartTime: now, EndTime: now.Add(time.Hour), Hidden: true,
	})
	require.NoError(t, err)

	t.Run("copy resolves titles", func(t *testing.T) {
		link, err := svc.Copy(ctx, uid, crsID, resource.NewLink{Type: resource.TypeAttendance, Code: ev.ID})
		require.NoError(t, err)
		assert.Equal(t, "Session 1", link.Title)

		now = now.Add(time.Minute)
		link, err = svc.Copy(ctx, uid, crsID, resource.NewLink{Type: resource.TypeDocument, Code: 7})
		require.NoError(t, err)
		assert.Empty(t, link.Title)
	})

	t.Run("invalid links", func(t *testing.T) {
		_, err := svc.Copy(ctx, uid, crsID, resource.NewLink{Type: "xyz", Code: 1})
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.Copy(ctx, uid, crsID, resource.NewLink{Type: resource.TypeAttendance, Code: 999})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("most recent last", func(t *testing.T) {
		now = now.Add(time.Minute)
		_, err := svc.Copy(ctx, uid, crsID, resource.NewLink{Type: resource.TypeAttendance, Code: ev.ID})
		require.NoError(t, err)

		links, err := svc.Clipboard(ctx, uid, crsID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, resource.TypeDocument, links[0].Type)
		assert.Equal(t, resource.TypeAttendance, links[1].Type)
		assert.Equal(t, "Session 1", links[1].Title)

		others, err := svc.Clipboard(ctx, seed.Student1.ID, crsID)
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("removed resources keep no title", func(t *testing.T) {
		require.NoError(t, env.Attendance.Remove(ctx, crsID, ev.ID))
		links, err := svc.Clipboard(ctx, uid, crsID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Empty(t, links[1].Title)
	})

	t.Run("remove and clear", func(t *testing.T) {
		require.NoError(t, svc.Remove(ctx, uid, crsID, resource.TypeAttendance, ev.ID))
		assert.Equal(t, resource.ErrNotFound, errors.Cause(svc.Remove(ctx, uid, crsID, resource.TypeAttendance, ev.ID)))

		require.NoError(t, svc.Clear(ctx, uid, crsID))
		links, err := svc.Clipboard(ctx, uid, crsID)
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestService_TitleTruncated(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.Resources
	svc.RegisterTitleResolver(resource.TypeExam, func(ctx context.Context, courseID, code int64) (string, error) {
		return strings.Repeat("x", 300), nil
	})

	link, err := svc.Copy(context.Background(), "user-1", 1, resource.NewLink{Type: resource.TypeExam, Code: 1})
	require.NoError(t, err)
	assert.Len(t, link.Title, resource.MaxTitleLength)
}

func TestType_Valid(t *testing.T) {
	for _, typ := range resource.AllTypes {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, resource.Type("").Valid())
	assert.False(t, resource.Type("ASG").Valid())
}
