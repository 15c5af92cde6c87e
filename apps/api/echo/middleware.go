package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

const (
	contextCourseKey = "course"
	contextViewerKey = "viewer"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swad",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Number of HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swad",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		if err := next(ctx); err != nil {
			ctx.Error(err)
		}

		method, route := ctx.Request().Method, ctx.Path()
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// courseMiddleware loads the course of the :crs param and the role of the user in it.
// Users not enrolled in the course only get through when they are system admins.
// The request context gets a group membership cache.
func (s *Server) courseMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		crsID, err := paramInt64(ctx, "crs")
		if err != nil {
			return err
		}
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}

		req := ctx.Request()
		crs, err := s.deps.Courses.Get(req.Context(), crsID)
		if err != nil {
			return errors.Wrap(err, "getting course")
		}

		viewer := course.Viewer{UserID: claims.Subject, Admin: claims.IsAdmin}
		role, err := s.deps.Courses.GetRole(req.Context(), crsID, claims.Subject)
		switch {
		case err == nil:
			viewer.Role = role
		case errors.Cause(err) == course.ErrNotEnrolled:
			if !viewer.Admin {
				return errHttpForbidden
			}
		default:
			return errors.Wrap(err, "getting course role")
		}

		ctx.Set(contextCourseKey, crs)
		ctx.Set(contextViewerKey, viewer)
		ctx.SetRequest(req.WithContext(group.WithCache(req.Context())))
		return next(ctx)
	}
}

// editorMiddleware lets through the users that can change course data.
func editorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !contextViewer(ctx).CanEdit() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// teachingMiddleware lets through the teachers of the course, editing or not.
func teachingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !contextViewer(ctx).IsTeacher() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

func contextCourse(ctx echo.Context) course.Course {
	crs, _ := ctx.Get(contextCourseKey).(course.Course)
	return crs
}

func contextViewer(ctx echo.Context) course.Viewer {
	viewer, _ := ctx.Get(contextViewerKey).(course.Viewer)
	return viewer
}
