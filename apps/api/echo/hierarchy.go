package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/hierarchy"
)

func (s *Server) registerHierarchyAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	hg := g.Group("", jwt)

	hg.GET("/countries", s.listCountries)
	hg.POST("/countries", s.createCountry, adminMiddleware)
	hg.GET("/countries/:cty", s.retrieveCountry)
	hg.PUT("/countries/:cty", s.updateCountry, adminMiddleware)
	hg.DELETE("/countries/:cty", s.destroyCountry, adminMiddleware)
	hg.GET("/countries/:cty/map", s.mapView(hierarchy.LevelCountry, "cty"))

	hg.GET("/institutions", s.listInstitutions)
	hg.POST("/institutions", s.createInstitution) // pending until an admin accepts it
	hg.GET("/institutions/:ins", s.retrieveInstitution)
	hg.PUT("/institutions/:ins", s.updateInstitution, adminMiddleware)
	hg.DELETE("/institutions/:ins", s.destroyInstitution, adminMiddleware)
	hg.GET("/institutions/:ins/map", s.mapView(hierarchy.LevelInstitution, "ins"))

	hg.GET("/centers", s.listCenters)
	hg.POST("/centers", s.createCenter, adminMiddleware)
	hg.GET("/centers/:ctr", s.retrieveCenter)
	hg.PUT("/centers/:ctr", s.updateCenter, adminMiddleware)
	hg.DELETE("/centers/:ctr", s.destroyCenter, adminMiddleware)
	hg.PUT("/centers/:ctr/coordinates", s.changeCenterCoordinates, adminMiddleware)
	hg.GET("/centers/:ctr/map", s.mapView(hierarchy.LevelCenter, "ctr"))
	hg.GET("/centers/:ctr/rooms", s.listRooms)
	hg.POST("/centers/:ctr/rooms", s.createRoom, adminMiddleware)
	hg.PUT("/rooms/:room", s.updateRoom, adminMiddleware)
	hg.DELETE("/rooms/:room", s.destroyRoom, adminMiddleware)

	hg.GET("/degrees", s.listDegrees)
	hg.POST("/degrees", s.createDegree, adminMiddleware)
	hg.GET("/degrees/:deg", s.retrieveDegree)
	hg.PUT("/degrees/:deg", s.updateDegree, adminMiddleware)
	hg.DELETE("/degrees/:deg", s.destroyDegree, adminMiddleware)

	hg.GET("/map", s.mapView(hierarchy.LevelSystem, ""))
}

// Countries

func (s *Server) listCountries(ctx echo.Context) error {
	ctys, err := s.deps.Hierarchy.ListCountries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing countries")
	}
	if ctys == nil {
		ctys = []hierarchy.Country{}
	}
	return ctx.JSON(http.StatusOK, ctys)
}

func (s *Server) createCountry(ctx echo.Context) error {
	var data hierarchy.NewCountry
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	cty, err := s.deps.Hierarchy.CreateCountry(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating country")
	}
	return ctx.JSON(http.StatusCreated, cty)
}

func (s *Server) retrieveCountry(ctx echo.Context) error {
	id, err := paramInt64(ctx, "cty")
	if err != nil {
		return err
	}
	cty, err := s.deps.Hierarchy.GetCountry(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting country")
	}
	return ctx.JSON(http.StatusOK, cty)
}

func (s *Server) updateCountry(ctx echo.Context) error {
	id, err := paramInt64(ctx, "cty")
	if err != nil {
		return err
	}
	var data hierarchy.UpdateCountry
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	cty, err := s.deps.Hierarchy.UpdateCountry(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating country")
	}
	return ctx.JSON(http.StatusOK, cty)
}

func (s *Server) destroyCountry(ctx echo.Context) error {
	id, err := paramInt64(ctx, "cty")
	if err != nil {
		return err
	}
	if err = s.deps.Hierarchy.RemoveCountry(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "removing country")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Institutions

func (s *Server) listInstitutions(ctx echo.Context) error {
	ctyID, err := queryInt64(ctx, "country")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	inss, err := s.deps.Hierarchy.ListInstitutions(ctx.Request().Context(), ctyID, claims.IsAdmin && ctx.QueryParam("removed") == "true")
	if err != nil {
		return errors.Wrap(err, "listing institutions")
	}
	if inss == nil {
		inss = []hierarchy.Institution{}
	}
	return ctx.JSON(http.StatusOK, inss)
}

func (s *Server) createInstitution(ctx echo.Context) error {
	var data hierarchy.NewInstitution
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	ins, err := s.deps.Hierarchy.CreateInstitution(ctx.Request().Context(), data, claims.Subject, !claims.IsAdmin)
	if err != nil {
		return errors.Wrap(err, "creating institution")
	}
	return ctx.JSON(http.StatusCreated, ins)
}

func (s *Server) retrieveInstitution(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ins")
	if err != nil {
		return err
	}
	ins, err := s.deps.Hierarchy.GetInstitution(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting institution")
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (s *Server) updateInstitution(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ins")
	if err != nil {
		return err
	}
	var data hierarchy.UpdateInstitution
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	ins, err := s.deps.Hierarchy.UpdateInstitution(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating institution")
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (s *Server) destroyInstitution(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ins")
	if err != nil {
		return err
	}
	if err = s.deps.Hierarchy.RemoveInstitution(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "removing institution")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Centers

func (s *Server) listCenters(ctx echo.Context) error {
	insID, err := queryInt64(ctx, "institution")
	if err != nil {
		return err
	}
	ctrs, err := s.deps.Hierarchy.ListCenters(ctx.Request().Context(), hierarchy.CenterFilter{InstitutionID: insID})
	if err != nil {
		return errors.Wrap(err, "listing centers")
	}
	if ctrs == nil {
		ctrs = []hierarchy.Center{}
	}
	return ctx.JSON(http.StatusOK, ctrs)
}

func (s *Server) createCenter(ctx echo.Context) error {
	var data hierarchy.NewCenter
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	ctr, err := s.deps.Hierarchy.CreateCenter(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating center")
	}
	return ctx.JSON(http.StatusCreated, ctr)
}

func (s *Server) retrieveCenter(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	ctr, err := s.deps.Hierarchy.GetCenter(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting center")
	}
	return ctx.JSON(http.StatusOK, ctr)
}

func (s *Server) updateCenter(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	var data hierarchy.UpdateCenter
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	ctr, err := s.deps.Hierarchy.UpdateCenter(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating center")
	}
	return ctx.JSON(http.StatusOK, ctr)
}

func (s *Server) changeCenterCoordinates(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	var data hierarchy.Coordinates
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Coordinates")
	}
	ctr, err := s.deps.Hierarchy.ChangeCenterCoordinates(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "changing center coordinates")
	}
	return ctx.JSON(http.StatusOK, ctr)
}

func (s *Server) destroyCenter(ctx echo.Context) error {
	id, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	if err = s.deps.Hierarchy.RemoveCenter(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "removing center")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Rooms

func (s *Server) listRooms(ctx echo.Context) error {
	ctrID, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if _, err = s.deps.Hierarchy.GetCenter(reqCtx, ctrID); err != nil {
		return errors.Wrap(err, "getting center")
	}
	rooms, err := s.deps.Hierarchy.ListRooms(reqCtx, ctrID)
	if err != nil {
		return errors.Wrap(err, "listing rooms")
	}
	if rooms == nil {
		rooms = []hierarchy.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (s *Server) createRoom(ctx echo.Context) error {
	ctrID, err := paramInt64(ctx, "ctr")
	if err != nil {
		return err
	}
	var data hierarchy.NewRoom
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	room, err := s.deps.Hierarchy.CreateRoom(ctx.Request().Context(), ctrID, data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, room)
}

func (s *Server) updateRoom(ctx echo.Context) error {
	id, err := paramInt64(ctx, "room")
	if err != nil {
		return err
	}
	var data hierarchy.UpdateRoom
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	room, err := s.deps.Hierarchy.UpdateRoom(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating room")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (s *Server) destroyRoom(ctx echo.Context) error {
	id, err := paramInt64(ctx, "room")
	if err != nil {
		return err
	}
	if err = s.deps.Hierarchy.RemoveRoom(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "removing room")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Degrees

func (s *Server) listDegrees(ctx echo.Context) error {
	ctrID, err := queryInt64(ctx, "center")
	if err != nil {
		return err
	}
	degs, err := s.deps.Hierarchy.ListDegrees(ctx.Request().Context(), ctrID)
	if err != nil {
		return errors.Wrap(err, "listing degrees")
	}
	if degs == nil {
		degs = []hierarchy.Degree{}
	}
	return ctx.JSON(http.StatusOK, degs)
}

func (s *Server) createDegree(ctx echo.Context) error {
	var data hierarchy.NewDegree
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	deg, err := s.deps.Hierarchy.CreateDegree(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating degree")
	}
	return ctx.JSON(http.StatusCreated, deg)
}

func (s *Server) retrieveDegree(ctx echo.Context) error {
	id, err := paramInt64(ctx, "deg")
	if err != nil {
		return err
	}
	deg, err := s.deps.Hierarchy.GetDegree(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting degree")
	}
	return ctx.JSON(http.StatusOK, deg)
}

func (s *Server) updateDegree(ctx echo.Context) error {
	id, err := paramInt64(ctx, "deg")
	if err != nil {
		return err
	}
	var data hierarchy.UpdateDegree
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	deg, err := s.deps.Hierarchy.UpdateDegree(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating degree")
	}
	return ctx.JSON(http.StatusOK, deg)
}

func (s *Server) destroyDegree(ctx echo.Context) error {
	id, err := paramInt64(ctx, "deg")
	if err != nil {
		return err
	}
	if err = s.deps.Hierarchy.RemoveDegree(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "removing degree")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Maps

// mapView serves the map of a level; param names the path param holding the id of the node.
func (s *Server) mapView(level hierarchy.Level, param string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var id int64
		if param != "" {
			var err error
			if id, err = paramInt64(ctx, param); err != nil {
				return err
			}
		}
		view, err := s.deps.Hierarchy.MapView(ctx.Request().Context(), level, id)
		if err != nil {
			return errors.Wrapf(err, "getting %s map", level)
		}
		return ctx.JSON(http.StatusOK, view)
	}
}
