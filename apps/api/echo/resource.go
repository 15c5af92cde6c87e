package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/resource"
)

func (s *Server) registerClipboardAPI(cg *echo.Group) {
	rg := cg.Group("/clipboard", teachingMiddleware)
	rg.GET("", s.listClipboard)
	rg.POST("", s.copyToClipboard)
	rg.DELETE("", s.clearClipboard)
	rg.DELETE("/:type/:code", s.removeFromClipboard)
}

func (s *Server) listClipboard(ctx echo.Context) error {
	links, err := s.deps.Resources.Clipboard(ctx.Request().Context(), contextViewer(ctx).UserID, contextCourse(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing clipboard")
	}
	if links == nil {
		links = []resource.Link{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (s *Server) copyToClipboard(ctx echo.Context) error {
	var data resource.NewLink
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	link, err := s.deps.Resources.Copy(ctx.Request().Context(), contextViewer(ctx).UserID, contextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "copying to clipboard")
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (s *Server) removeFromClipboard(ctx echo.Context) error {
	typ := resource.Type(ctx.Param("type"))
	code, err := strconv.ParseInt(ctx.Param("code"), 10, 64)
	if err != nil || !typ.Valid() {
		return errHttpNotFound
	}
	err = s.deps.Resources.Remove(ctx.Request().Context(), contextViewer(ctx).UserID, contextCourse(ctx).ID, typ, code)
	if err != nil {
		return errors.Wrap(err, "removing from clipboard")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) clearClipboard(ctx echo.Context) error {
	if err := s.deps.Resources.Clear(ctx.Request().Context(), contextViewer(ctx).UserID, contextCourse(ctx).ID); err != nil {
		return errors.Wrap(err, "clearing clipboard")
	}
	return ctx.NoContent(http.StatusNoContent)
}
