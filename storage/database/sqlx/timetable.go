package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/timetable"
)

const (
	tmtCourseSelect = `SELECT course_id, group_id, weekday, start_minute, duration_minutes, class_type, info FROM tmt_course`

	tmtTutoringSelect = `SELECT 0 AS course_id, NULL::BIGINT AS group_id, weekday, start_minute, duration_minutes,
		'tutoring' AS class_type, info FROM tmt_tutoring`

	tmtOrder = ` ORDER BY weekday, start_minute`
)

// inUserGroups matches the classes of the groups of the user bound to param.
// A class without group concerns every member of the course.
func inUserGroups(param string) string {
	return `(group_id IS NULL OR group_id IN (SELECT group_id FROM grp_user WHERE user_id::text = ` + param + `))`
}

type timetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) *timetableRepository {
	return &timetableRepository{db: db}
}

func (repo timetableRepository) list(ctx context.Context, ext sqlx.ExtContext, q string, args ...interface{}) ([]timetable.Class, error) {
	classes := make([]timetable.Class, 0)
	err := sqlx.SelectContext(ctx, ext, &classes, q+tmtOrder, args...)
	return classes, errors.Wrap(err, "listing classes")
}

func (repo timetableRepository) ListCourseClasses(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]timetable.Class, error) {
	return repo.list(ctx, getExec(repo.db, exec), tmtCourseSelect+` WHERE course_id = $1`, courseID)
}

func (repo timetableRepository) ListCourseClassesOfUser(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) ([]timetable.Class, error) {
	return repo.list(ctx, getExec(repo.db, exec), tmtCourseSelect+` WHERE course_id = $1 AND `+inUserGroups("$2"), courseID, userID)
}

func (repo timetableRepository) ListUserClasses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]timetable.Class, error) {
	return repo.list(ctx, getExec(repo.db, exec), tmtCourseSelect+`
		WHERE course_id IN (SELECT course_id FROM course_user WHERE user_id::text = $1) AND `+inUserGroups("$1"),
		userID)
}

func (repo timetableRepository) ReplaceCourseClasses(ctx context.Context, courseID int64, classes []timetable.Class, exec ...core.DBExecutor) error {
	return inTx(ctx, repo.db, exec, func(ext sqlx.ExtContext) error {
		if _, err := ext.ExecContext(ctx, `DELETE FROM tmt_course WHERE course_id = $1`, courseID); err != nil {
			return errors.Wrap(err, "clearing classes")
		}
		for _, c := range classes {
			_, err := ext.ExecContext(ctx, `
				INSERT INTO tmt_course (course_id, group_id, weekday, start_minute, duration_minutes, class_type, info)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				courseID, c.GroupID, c.Weekday, c.StartMinute, c.DurationMinutes, c.ClassType, c.Info)
			if err != nil {
				return errors.Wrap(err, "inserting class")
			}
		}
		return nil
	})
}

func (repo timetableRepository) ListTutoring(ctx context.Context, userID string, exec ...core.DBExecutor) ([]timetable.Class, error) {
	return repo.list(ctx, getExec(repo.db, exec), tmtTutoringSelect+` WHERE user_id::text = $1`, userID)
}

func (repo timetableRepository) ReplaceTutoring(ctx context.Context, userID string, classes []timetable.Class, exec ...core.DBExecutor) error {
	return inTx(ctx, repo.db, exec, func(ext sqlx.ExtContext) error {
		if _, err := ext.ExecContext(ctx, `DELETE FROM tmt_tutoring WHERE user_id::text = $1`, userID); err != nil {
			return errors.Wrap(err, "clearing tutoring hours")
		}
		for _, c := range classes {
			_, err := ext.ExecContext(ctx, `
				INSERT INTO tmt_tutoring (user_id, weekday, start_minute, duration_minutes, info)
				VALUES ($1, $2, $3, $4, $5)`,
				userID, c.Weekday, c.StartMinute, c.DurationMinutes, c.Info)
			if err != nil {
				return errors.Wrap(err, "inserting tutoring hour")
			}
		}
		return nil
	})
}
