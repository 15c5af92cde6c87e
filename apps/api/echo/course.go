package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/course"
)

func (s *Server) registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	lg := g.Group("/courses", jwt)
	lg.GET("", s.listCourses)
	lg.POST("", s.createCourse, adminMiddleware)

	// course scoped endpoints
	cg := g.Group("/courses/:crs", jwt, s.courseMiddleware)
	cg.GET("", s.retrieveCourse)
	cg.PUT("", s.updateCourse, adminMiddleware)
	cg.DELETE("", s.destroyCourse, adminMiddleware)

	cg.GET("/users", s.listMembers)
	cg.PUT("/users/:usr", s.enrol, editorMiddleware)
	cg.DELETE("/users/:usr", s.unenrol, editorMiddleware)

	s.registerGroupAPI(cg)
	s.registerAttendanceAPI(cg)
	s.registerTimetableAPI(g, cg, jwt)
	s.registerClipboardAPI(cg)
}

func (s *Server) listCourses(ctx echo.Context) error {
	degID, err := queryInt64(ctx, "degree")
	if err != nil {
		return err
	}
	crss, err := s.deps.Courses.List(ctx.Request().Context(), degID)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if crss == nil {
		crss = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, crss)
}

func (s *Server) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	crs, err := s.deps.Courses.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (s *Server) retrieveCourse(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextCourse(ctx))
}

func (s *Server) updateCourse(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	crs, err := s.deps.Courses.Update(ctx.Request().Context(), contextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *Server) destroyCourse(ctx echo.Context) error {
	if err := s.deps.Courses.Remove(ctx.Request().Context(), contextCourse(ctx).ID); err != nil {
		return errors.Wrap(err, "removing course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// listMembers lists the users of the course, optionally filtered by ?role=.
func (s *Server) listMembers(ctx echo.Context) error {
	var roles []course.Role
	for _, r := range ctx.QueryParams()["role"] {
		role := course.Role(r)
		if !role.Valid() {
			return ctx.JSON(http.StatusOK, []course.Member{})
		}
		roles = append(roles, role)
	}

	// students only see the teachers of the course
	if !contextViewer(ctx).IsTeacher() {
		roles = []course.Role{course.RoleTeacher, course.RoleNonEditingTeacher}
	}

	mbrs, err := s.deps.Courses.Members(ctx.Request().Context(), contextCourse(ctx).ID, roles...)
	if err != nil {
		return errors.Wrap(err, "listing course members")
	}
	if mbrs == nil {
		mbrs = []course.Member{}
	}
	return ctx.JSON(http.StatusOK, mbrs)
}

func (s *Server) enrol(ctx echo.Context) error {
	var data course.Enrolment
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	crsID, usrID := contextCourse(ctx).ID, ctx.Param("usr")
	reqCtx := ctx.Request().Context()
	if err := s.deps.Courses.Enrol(reqCtx, crsID, usrID, data.Role); err != nil {
		return errors.Wrap(err, "enrolling user")
	}
	return ctx.JSON(http.StatusOK, course.Member{CourseID: crsID, UserID: usrID, Role: data.Role})
}

func (s *Server) unenrol(ctx echo.Context) error {
	if err := s.deps.Courses.Unenrol(ctx.Request().Context(), contextCourse(ctx).ID, ctx.Param("usr")); err != nil {
		return errors.Wrap(err, "unenrolling user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// memberRole returns the role in the current course of the user named by the :usr param.
func (s *Server) memberRole(ctx echo.Context) (string, course.Role, error) {
	usrID := ctx.Param("usr")
	role, err := s.deps.Courses.GetRole(ctx.Request().Context(), contextCourse(ctx).ID, usrID)
	if err != nil {
		return "", "", errors.Wrap(err, "getting course role")
	}
	return usrID, role, nil
}
