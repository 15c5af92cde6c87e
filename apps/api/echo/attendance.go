package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/attendance"
)

func (s *Server) registerAttendanceAPI(cg *echo.Group) {
	cg.GET("/attendance", s.listEvents)
	cg.POST("/attendance", s.createEvent, editorMiddleware)
	cg.GET("/attendance/:att", s.retrieveEvent)
	cg.PUT("/attendance/:att", s.updateEvent, editorMiddleware)
	cg.DELETE("/attendance/:att", s.destroyEvent, editorMiddleware)
	cg.PUT("/attendance/:att/hide", s.hideEvent(true), editorMiddleware)
	cg.PUT("/attendance/:att/unhide", s.hideEvent(false), editorMiddleware)
	cg.GET("/attendance/:att/students", s.listEventStudents)
	cg.PUT("/attendance/:att/students", s.registerStudents, teachingMiddleware)
	cg.PUT("/attendance/:att/me", s.registerMe)
	cg.GET("/attendance/:att/qr", s.eventQRCode)
	cg.GET("/attendance-summary", s.attendanceSummary)
}

// listEvents lists the events of the course.
// Query: groups=mine|all, order=start|end, oldest=true.
func (s *Server) listEvents(ctx echo.Context) error {
	filter := attendance.ListFilter{
		Which:  attendance.Which(ctx.QueryParam("groups")),
		Order:  attendance.Order(ctx.QueryParam("order")),
		Oldest: ctx.QueryParam("oldest") == "true",
	}
	evs, err := s.deps.Attendance.List(ctx.Request().Context(), contextCourse(ctx).ID, contextViewer(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "listing attendance events")
	}
	if evs == nil {
		evs = []attendance.Event{}
	}
	return ctx.JSON(http.StatusOK, evs)
}

func (s *Server) createEvent(ctx echo.Context) error {
	var data attendance.NewEvent
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	ev, err := s.deps.Attendance.Create(ctx.Request().Context(), contextCourse(ctx).ID, contextViewer(ctx).UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating attendance event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (s *Server) retrieveEvent(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	ev, err := s.deps.Attendance.Get(ctx.Request().Context(), contextCourse(ctx).ID, id, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "getting attendance event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (s *Server) updateEvent(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	var data attendance.UpdateEvent
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	ev, err := s.deps.Attendance.Update(ctx.Request().Context(), contextCourse(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (s *Server) hideEvent(hidden bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramInt64(ctx, "att")
		if err != nil {
			return err
		}
		ev, err := s.deps.Attendance.SetHidden(ctx.Request().Context(), contextCourse(ctx).ID, id, hidden)
		if err != nil {
			return errors.Wrap(err, "hiding attendance event")
		}
		return ctx.JSON(http.StatusOK, ev)
	}
}

func (s *Server) destroyEvent(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	if err = s.deps.Attendance.Remove(ctx.Request().Context(), contextCourse(ctx).ID, id); err != nil {
		return errors.Wrap(err, "removing attendance event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// listEventStudents lists the attendance of the students of an event. Students only get their own.
func (s *Server) listEventStudents(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	recs, err := s.deps.Attendance.Students(ctx.Request().Context(), contextCourse(ctx).ID, id, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (s *Server) registerStudents(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	var data attendance.Registrations
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	recs, err := s.deps.Attendance.RegisterStudents(ctx.Request().Context(), contextCourse(ctx).ID, id, contextViewer(ctx), data.Students)
	if err != nil {
		return errors.Wrap(err, "registering students")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (s *Server) registerMe(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	var data attendance.MyRegistration
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	rec, err := s.deps.Attendance.RegisterMe(ctx.Request().Context(), contextCourse(ctx).ID, id, contextViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "registering my attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (s *Server) eventQRCode(ctx echo.Context) error {
	id, err := paramInt64(ctx, "att")
	if err != nil {
		return err
	}
	png, err := s.deps.Attendance.QRCode(ctx.Request().Context(), contextCourse(ctx).ID, id, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "encoding QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

// attendanceSummary returns the attendance matrix of the course.
// Query: event=<id> and user=<id>, both repeatable; all events and students when absent.
func (s *Server) attendanceSummary(ctx echo.Context) error {
	evIDs, err := queryInt64List(ctx, "event")
	if err != nil {
		return err
	}
	usrIDs := ctx.QueryParams()["user"]
	sum, err := s.deps.Attendance.Summary(ctx.Request().Context(), contextCourse(ctx).ID, contextViewer(ctx), evIDs, usrIDs)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}
