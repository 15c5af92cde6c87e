package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/timetable"
)

func (s *Server) registerTimetableAPI(g, cg *echo.Group, jwt echo.MiddlewareFunc) {
	cg.GET("/timetable", s.courseTimetable)
	cg.PUT("/timetable", s.modifyCourseTimetable, editorMiddleware)

	g.GET("/users/me/timetable", s.myTimetable, jwt)
	g.GET("/users/:id/tutoring", s.tutoringTimetable, jwt)
	g.PUT("/users/:id/tutoring", s.modifyTutoring, jwt, selfOrAdminMiddleware)
}

// courseTimetable returns the timetable of the course.
// Query: groups=mine|all; editing=true shows the editable timetable to editors.
func (s *Server) courseTimetable(ctx echo.Context) error {
	viewer := contextViewer(ctx)
	editing := ctx.QueryParam("editing") == "true"
	if editing && !viewer.CanEdit() {
		return errHttpForbidden
	}
	which := timetable.AllGroups
	if ctx.QueryParam("groups") == string(timetable.MyGroups) {
		which = timetable.MyGroups
	}
	view, err := s.deps.Timetable.CourseTimetable(ctx.Request().Context(), contextCourse(ctx).ID, viewer, which, editing)
	if err != nil {
		return errors.Wrap(err, "getting course timetable")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (s *Server) modifyCourseTimetable(ctx echo.Context) error {
	var data timetable.Modification
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	view, err := s.deps.Timetable.ModifyCourseTimetable(ctx.Request().Context(), contextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "modifying course timetable")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (s *Server) myTimetable(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	view, err := s.deps.Timetable.MyTimetable(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting my timetable")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (s *Server) tutoringTimetable(ctx echo.Context) error {
	view, err := s.deps.Timetable.TutoringTimetable(ctx.Request().Context(), ctx.Param("id"), false)
	if err != nil {
		return errors.Wrap(err, "getting tutoring timetable")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (s *Server) modifyTutoring(ctx echo.Context) error {
	var data timetable.Modification
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	view, err := s.deps.Timetable.ModifyTutoring(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "modifying tutoring timetable")
	}
	return ctx.JSON(http.StatusOK, view)
}

// selfOrAdminMiddleware lets teachers act on their own :id and admins on anyone.
func selfOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsAdmin || (claims.IsTeacher && claims.Subject == ctx.Param("id")) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
