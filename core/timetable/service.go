package timetable

import (
	"context"

	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

// DefaultRange is used when the configured range is not valid.
var DefaultRange = Range{StartHour: 6, EndHour: 24, MinutesPerInterval: 30}

// Which selects the classes of a course timetable.
type Which string

const (
	AllGroups Which = "all"
	MyGroups  Which = "mine"
)

type (
	Repository interface {
		ListCourseClasses(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]Class, error)
		// ListCourseClassesOfUser lists the classes of a course without group or of a group of the user.
		ListCourseClassesOfUser(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) ([]Class, error)
		// ListUserClasses lists the classes of every course of a user, without group or of one of their groups.
		ListUserClasses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Class, error)
		ReplaceCourseClasses(ctx context.Context, courseID int64, classes []Class, exec ...core.DBExecutor) error

		ListTutoring(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Class, error)
		ReplaceTutoring(ctx context.Context, userID string, classes []Class, exec ...core.DBExecutor) error
	}

	GroupGetter interface {
		GetGroup(ctx context.Context, courseID, id int64) (group.Group, error)
	}

	Service struct {
		repo   Repository
		tx     core.Transactor
		groups GroupGetter
		rng    Range
	}

	// View is a timetable ready to be drawn.
	View struct {
		Range      Range       `json:"range"`
		Editing    bool        `json:"editing"`
		Incomplete bool        `json:"incomplete"`
		Rows       []LayoutRow `json:"rows"`
	}
)

func NewService(repo Repository, tx core.Transactor, groups GroupGetter, conf *core.Config, logger core.Logger) *Service {
	rng := Range{
		StartHour:          conf.Timetable.StartHour,
		EndHour:            conf.Timetable.EndHour,
		MinutesPerInterval: conf.Timetable.MinutesPerInterval,
	}
	if err := rng.Validate(); err != nil {
		logger.Warn("timetable.NewService: using default range: " + err.Error())
		rng = DefaultRange
	}
	return &Service{repo: repo, tx: tx, groups: groups, rng: rng}
}

func (svc *Service) Range() Range {
	return svc.rng
}

func (svc *Service) view(classes []Class, editing bool) View {
	t := Build(svc.rng, classes)
	return View{Range: svc.rng, Editing: editing, Incomplete: t.Incomplete, Rows: t.Layout(editing)}
}

// CourseTimetable returns the timetable of a course. Editing shows every group.
func (svc *Service) CourseTimetable(ctx context.Context, courseID int64, viewer course.Viewer, which Which, editing bool) (View, error) {
	var (
		classes []Class
		err     error
	)
	if which == MyGroups && !editing {
		classes, err = svc.repo.ListCourseClassesOfUser(ctx, courseID, viewer.UserID)
	} else {
		classes, err = svc.repo.ListCourseClasses(ctx, courseID)
	}
	if err != nil {
		return View{}, errors.Wrap(err, "listing classes")
	}
	return svc.view(classes, editing), nil
}

// ModifyCourseTimetable changes one column of a cell of a course timetable and returns the edited timetable.
func (svc *Service) ModifyCourseTimetable(ctx context.Context, courseID int64, m Modification) (View, error) {
	if m.GroupID > 0 && m.ClassType != ClassFree {
		if _, err := svc.groups.GetGroup(ctx, courseID, m.GroupID); err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return View{}, core.NewFieldValidationError("group_id", "group not found in this course")
			}
			return View{}, err
		}
	}
	if m.ClassType == ClassTutoring {
		return View{}, core.NewFieldValidationError("class_type", "tutoring hours do not belong to course timetables")
	}

	var classes []Class
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		stored, err := svc.repo.ListCourseClasses(ctx, courseID, exec)
		if err != nil {
			return errors.Wrap(err, "listing classes")
		}
		t := Build(svc.rng, stored)
		if err = t.Modify(m); err != nil {
			return err
		}
		classes = t.Classes(courseID)
		return errors.Wrap(svc.repo.ReplaceCourseClasses(ctx, courseID, classes, exec), "saving classes")
	})
	if err != nil {
		return View{}, err
	}
	return svc.view(classes, true), nil
}

// MyTimetable returns the classes of every course of a user plus their tutoring hours.
func (svc *Service) MyTimetable(ctx context.Context, userID string) (View, error) {
	classes, err := svc.repo.ListUserClasses(ctx, userID)
	if err != nil {
		return View{}, errors.Wrap(err, "listing classes")
	}
	tut, err := svc.repo.ListTutoring(ctx, userID)
	if err != nil {
		return View{}, errors.Wrap(err, "listing tutoring hours")
	}
	return svc.view(append(classes, tut...), false), nil
}

// TutoringTimetable returns the tutoring hours of a teacher.
func (svc *Service) TutoringTimetable(ctx context.Context, userID string, editing bool) (View, error) {
	classes, err := svc.repo.ListTutoring(ctx, userID)
	if err != nil {
		return View{}, errors.Wrap(err, "listing tutoring hours")
	}
	return svc.view(classes, editing), nil
}

// ModifyTutoring changes one column of a cell of the tutoring hours of a teacher.
func (svc *Service) ModifyTutoring(ctx context.Context, userID string, m Modification) (View, error) {
	if m.ClassType != ClassFree {
		m.ClassType = ClassTutoring
	}
	m.GroupID = 0

	var classes []Class
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		stored, err := svc.repo.ListTutoring(ctx, userID, exec)
		if err != nil {
			return errors.Wrap(err, "listing tutoring hours")
		}
		t := Build(svc.rng, stored)
		if err = t.Modify(m); err != nil {
			return err
		}
		classes = t.Classes(0)
		return errors.Wrap(svc.repo.ReplaceTutoring(ctx, userID, classes, exec), "saving tutoring hours")
	})
	if err != nil {
		return View{}, err
	}
	return svc.view(classes, true), nil
}
