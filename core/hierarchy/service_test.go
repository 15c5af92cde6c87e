package hierarchy_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	"github.com/acanas/swad-core-sub004/testutil"
)

func TestService_Countries(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.Hierarchy
	ctx := context.Background()

	es, err := svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "es", Name: " Spain "})
	require.NoError(t, err)
	assert.Equal(t, "ES", es.Alpha2)
	assert.Equal(t, "Spain", es.Name)
	_, err = svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "AD", Name: "Andorra"})
	require.NoError(t, err)

	t.Run("sorted by name", func(t *testing.T) {
		ctys, err := svc.ListCountries(ctx)
		require.NoError(t, err)
		require.Len(t, ctys, 2)
		assert.Equal(t, "Andorra", ctys[0].Name)
		assert.Equal(t, "Spain", ctys[1].Name)
	})

	t.Run("unique code and name", func(t *testing.T) {
		_, err := svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "ES", Name: "España"})
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "EX", Name: "SPAIN"})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("update", func(t *testing.T) {
		name := "España"
		cty, err := svc.UpdateCountry(ctx, es.ID, hierarchy.UpdateCountry{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "España", cty.Name)
		assert.Equal(t, "ES", cty.Alpha2)

		_, err = svc.UpdateCountry(ctx, 999, hierarchy.UpdateCountry{Name: &name})
		assert.Equal(t, hierarchy.ErrCountryNotFound, errors.Cause(err))
	})

	t.Run("remove only when empty", func(t *testing.T) {
		_, err := svc.CreateInstitution(ctx, hierarchy.NewInstitution{
			CountryID: es.ID,
			Names:     hierarchy.Names{ShortName: "UGR", FullName: "Universidad de Granada"},
		}, "", false)
		require.NoError(t, err)
		assert.Equal(t, hierarchy.ErrNotEmpty, errors.Cause(svc.RemoveCountry(ctx, es.ID)))
	})
}

func TestService_Institutions(t *testing.T) {
	env := testutil.NewEnv()
	svc := env.Hierarchy
	ctx := context.Background()

	es, err := svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "ES", Name: "Spain"})
	require.NoError(t, err)
	pt, err := svc.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "PT", Name: "Portugal"})
	require.NoError(t, err)

	ugr, err := svc.CreateInstitution(ctx, hierarchy.NewInstitution{
		CountryID: es.ID,
		Names:     hierarchy.Names{ShortName: "UGR", FullName: "Universidad de Granada"},
	}, "", false)
	require.NoError(t, err)
	assert.False(t, ugr.IsPending())

	t.Run("unknown country", func(t *testing.T) {
		_, err := svc.CreateInstitution(ctx, hierarchy.NewInstitution{
			CountryID: 999,
			Names:     hierarchy.Names{ShortName: "X", FullName: "X"},
		}, "", false)
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("names unique among siblings only", func(t *testing.T) {
		_, err := svc.CreateInstitution(ctx, hierarchy.NewInstitution{
			CountryID: es.ID,
			Names:     hierarchy.Names{ShortName: "ugr", FullName: "Otra"},
		}, "", false)
		assert.IsType(t, &core.ValidationError{}, err)

		_, err = svc.CreateInstitution(ctx, hierarchy.NewInstitution{
			CountryID: pt.ID,
			Names:     hierarchy.Names{ShortName: "UGR", FullName: "Universidade do Grande Reino"},
		}, "", false)
		assert.NoError(t, err)
	})

	t.Run("pending requests", func(t *testing.T) {
		ins, err := svc.CreateInstitution(ctx, hierarchy.NewInstitution{
			CountryID: es.ID,
			Names:     hierarchy.Names{ShortName: "UMA", FullName: "Universidad de Málaga"},
		}, "user-1", true)
		require.NoError(t, err)
		assert.True(t, ins.IsPending())
		assert.Equal(t, "user-1", ins.RequesterID.String)

		status := 0
		ins, err = svc.UpdateInstitution(ctx, ins.ID, hierarchy.UpdateInstitution{Status: &status})
		require.NoError(t, err)
		assert.False(t, ins.IsPending())
	})

	t.Run("removed institutions are hidden", func(t *testing.T) {
		status := hierarchy.StatusRemoved | 8
		ins, err := svc.UpdateInstitution(ctx, ugr.ID, hierarchy.UpdateInstitution{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, hierarchy.StatusRemoved, ins.Status)

		visible, err := svc.ListInstitutions(ctx, es.ID, false)
		require.NoError(t, err)
		for _, i := range visible {
			assert.NotEqual(t, ugr.ID, i.ID)
		}
		all, err := svc.ListInstitutions(ctx, es.ID, true)
		require.NoError(t, err)
		assert.Len(t, all, len(visible)+1)
	})

	t.Run("move to another country", func(t *testing.T) {
		bad := int64(999)
		_, err := svc.UpdateInstitution(ctx, ugr.ID, hierarchy.UpdateInstitution{CountryID: &bad})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestService_CentersDegreesRooms(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	svc := env.Hierarchy
	ctx := context.Background()

	t.Run("coordinates are clamped", func(t *testing.T) {
		ctr, err := svc.ChangeCenterCoordinates(ctx, seed.Center.ID, hierarchy.Coordinates{Latitude: 100, Longitude: -3.6, Altitude: 9000})
		require.NoError(t, err)
		assert.Equal(t, hierarchy.Coordinates{Latitude: 90, Longitude: -3.6, Altitude: 8848}, ctr.Coordinates)
	})

	t.Run("center with children cannot be removed", func(t *testing.T) {
		assert.Equal(t, hierarchy.ErrNotEmpty, errors.Cause(svc.RemoveCenter(ctx, seed.Center.ID)))
	})

	t.Run("degree with courses cannot be removed", func(t *testing.T) {
		assert.Equal(t, hierarchy.ErrNotEmpty, errors.Cause(svc.RemoveDegree(ctx, seed.Degree.ID)))
	})

	t.Run("rooms", func(t *testing.T) {
		_, err := svc.CreateRoom(ctx, seed.Center.ID, hierarchy.NewRoom{Names: hierarchy.Names{ShortName: "a1", FullName: "Otra"}})
		assert.IsType(t, &core.ValidationError{}, err)

		b2, err := svc.CreateRoom(ctx, seed.Center.ID, hierarchy.NewRoom{Names: hierarchy.Names{ShortName: "B2", FullName: "Aula 2"}})
		require.NoError(t, err)
		rooms, err := svc.ListRooms(ctx, seed.Center.ID)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "A1", rooms[0].ShortName)

		capacity := 30
		b2, err = svc.UpdateRoom(ctx, b2.ID, hierarchy.UpdateRoom{Capacity: &capacity})
		require.NoError(t, err)
		assert.Equal(t, 30, b2.Capacity)

		require.NoError(t, svc.RemoveRoom(ctx, b2.ID))
		_, err = svc.GetRoom(ctx, b2.ID)
		assert.Equal(t, hierarchy.ErrRoomNotFound, errors.Cause(err))
	})

	t.Run("unknown parents", func(t *testing.T) {
		_, err := svc.CreateCenter(ctx, hierarchy.NewCenter{InstitutionID: 999, Names: hierarchy.Names{ShortName: "X", FullName: "X"}})
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.CreateDegree(ctx, hierarchy.NewDegree{CenterID: 999, Names: hierarchy.Names{ShortName: "X", FullName: "X"}})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestService_MapView(t *testing.T) {
	env := testutil.NewEnv()
	seed := env.Seed(t)
	svc := env.Hierarchy
	ctx := context.Background()

	view, err := svc.MapView(ctx, hierarchy.LevelSystem, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Markers)

	_, err = svc.ChangeCenterCoordinates(ctx, seed.Center.ID, hierarchy.Coordinates{Latitude: 37.18, Longitude: -3.6})
	require.NoError(t, err)
	other, err := svc.CreateCenter(ctx, hierarchy.NewCenter{
		InstitutionID: seed.Institution.ID,
		Names:         hierarchy.Names{ShortName: "FC", FullName: "Facultad de Ciencias"},
	})
	require.NoError(t, err)
	_, err = svc.ChangeCenterCoordinates(ctx, other.ID, hierarchy.Coordinates{Latitude: 37.20, Longitude: -3.62})
	require.NoError(t, err)

	for _, tc := range []struct {
		level hierarchy.Level
		id    int64
		n     int
	}{
		{hierarchy.LevelSystem, 0, 2},
		{hierarchy.LevelCountry, seed.Country.ID, 2},
		{hierarchy.LevelInstitution, seed.Institution.ID, 2},
		{hierarchy.LevelCenter, seed.Center.ID, 1},
	} {
		view, err := svc.MapView(ctx, tc.level, tc.id)
		require.NoError(t, err, tc.level.String())
		assert.Len(t, view.Markers, tc.n, tc.level.String())
	}

	_, err = svc.MapView(ctx, hierarchy.LevelCountry, 999)
	assert.Equal(t, hierarchy.ErrCountryNotFound, errors.Cause(err))
	_, err = svc.MapView(ctx, hierarchy.LevelCourse, seed.Course.ID)
	assert.Error(t, err)
}
