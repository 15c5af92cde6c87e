package inmemdb

import (
	"context"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) *timetableRepository {
	return &timetableRepository{db: db}
}

func (t *tables) classesOfUser(courseID int64, userID string) []timetable.Class {
	classes := make([]timetable.Class, 0)
	for _, c := range t.tmtCourse[courseID] {
		if !c.GroupID.Valid || t.grpUsers[memberKey{c.GroupID.Int64, userID}] {
			classes = append(classes, c)
		}
	}
	return classes
}

func (repo *timetableRepository) ListCourseClasses(ctx context.Context, courseID int64, exec ...core.DBExecutor) (classes []timetable.Class, err error) {
	repo.db.read(func(t *tables) {
		classes = append([]timetable.Class{}, t.tmtCourse[courseID]...)
	})
	return classes, nil
}

func (repo *timetableRepository) ListCourseClassesOfUser(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) (classes []timetable.Class, err error) {
	repo.db.read(func(t *tables) { classes = t.classesOfUser(courseID, userID) })
	return classes, nil
}

func (repo *timetableRepository) ListUserClasses(ctx context.Context, userID string, exec ...core.DBExecutor) (classes []timetable.Class, err error) {
	repo.db.read(func(t *tables) {
		classes = make([]timetable.Class, 0)
		for k := range t.courseUsers {
			if k.userID == userID {
				classes = append(classes, t.classesOfUser(k.scope, userID)...)
			}
		}
	})
	return classes, nil
}

func (repo *timetableRepository) ReplaceCourseClasses(ctx context.Context, courseID int64, classes []timetable.Class, exec ...core.DBExecutor) error {
	stored := make([]timetable.Class, len(classes))
	for i, c := range classes {
		c.CourseID = courseID
		stored[i] = c
	}
	repo.db.write(exec, func(t *tables) { t.tmtCourse[courseID] = stored })
	return nil
}

func (repo *timetableRepository) ListTutoring(ctx context.Context, userID string, exec ...core.DBExecutor) (classes []timetable.Class, err error) {
	repo.db.read(func(t *tables) {
		classes = append([]timetable.Class{}, t.tmtTutoring[userID]...)
	})
	return classes, nil
}

func (repo *timetableRepository) ReplaceTutoring(ctx context.Context, userID string, classes []timetable.Class, exec ...core.DBExecutor) error {
	stored := make([]timetable.Class, len(classes))
	for i, c := range classes {
		c.CourseID = 0
		c.ClassType = timetable.ClassTutoring
		stored[i] = c
	}
	repo.db.write(exec, func(t *tables) { t.tmtTutoring[userID] = stored })
	return nil
}
