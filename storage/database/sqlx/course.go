package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
)

const courseColumns = `id, degree_id, year, short_name, full_name`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) ListCourses(ctx context.Context, degreeID int64, exec ...core.DBExecutor) ([]course.Course, error) {
	var w where
	if degreeID != 0 {
		w.add("degree_id = ?", degreeID)
	}
	ext := getExec(repo.db, exec)
	crss := make([]course.Course, 0)
	err := sqlx.SelectContext(ctx, ext, &crss, ext.Rebind(`SELECT `+courseColumns+` FROM course`+w.String()+` ORDER BY id`), w.args...)
	return crss, errors.Wrap(err, "listing courses")
}

func (repo courseRepository) GetCourse(ctx context.Context, id int64, exec ...core.DBExecutor) (course.Course, error) {
	var crs course.Course
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &crs, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return crs, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO course (degree_id, year, short_name, full_name) VALUES ($1, $2, $3, $4) RETURNING id`,
		crs.DegreeID, crs.Year, crs.ShortName, crs.FullName,
	).Scan(&crs.ID)
	return crs, errors.Wrap(err, "inserting course")
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`UPDATE course SET degree_id = $2, year = $3, short_name = $4, full_name = $5 WHERE id = $1`,
		crs.ID, crs.DegreeID, crs.Year, crs.ShortName, crs.FullName)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return crs, checkAffected(res, course.ErrNotFound, "updating course")
}

// DeleteCourse relies on ON DELETE CASCADE for enrolments, groups, events, timetables and clipboards.
func (repo courseRepository) DeleteCourse(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound, "deleting course")
}

func (repo courseRepository) ListMembers(ctx context.Context, courseID int64, roles []course.Role, exec ...core.DBExecutor) ([]course.Member, error) {
	var w where
	w.add("cu.course_id = ?", courseID)
	if len(roles) > 0 {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, string(r))
		}
		w.add("cu.role = ANY(?)", pq.Array(names))
	}
	q := `SELECT cu.course_id, cu.user_id, u.name, COALESCE(u.email, '') AS email, cu.role
		FROM course_user cu JOIN "user" u ON u.id = cu.user_id` + w.String() + ` ORDER BY cu.user_id`

	ext := getExec(repo.db, exec)
	mbrs := make([]course.Member, 0)
	err := sqlx.SelectContext(ctx, ext, &mbrs, ext.Rebind(q), w.args...)
	return mbrs, errors.Wrap(err, "listing members")
}

func (repo courseRepository) GetRole(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) (course.Role, error) {
	var role course.Role
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &role,
		`SELECT role FROM course_user WHERE course_id = $1 AND user_id::text = $2`, courseID, userID)
	if err != nil {
		return "", trapNoRowsErr(err, course.ErrNotEnrolled, "getting role")
	}
	return role, nil
}

func (repo courseRepository) SetRole(ctx context.Context, courseID int64, userID string, role course.Role, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO course_user (course_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (course_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		courseID, userID, string(role))
	return errors.Wrap(err, "setting role")
}

func (repo courseRepository) DeleteMember(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`DELETE FROM course_user WHERE course_id = $1 AND user_id::text = $2`, courseID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return checkAffected(res, course.ErrNotEnrolled, "deleting member")
}
