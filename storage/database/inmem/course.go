package inmemdb

import (
	"context"
	"sort"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) ListCourses(ctx context.Context, degreeID int64, exec ...core.DBExecutor) (crss []course.Course, err error) {
	repo.db.read(func(t *tables) {
		crss = sortedByID(t.courses, func(crs course.Course) bool { return degreeID == 0 || crs.DegreeID == degreeID })
	})
	return crss, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int64, exec ...core.DBExecutor) (crs course.Course, err error) {
	err = course.ErrNotFound
	repo.db.read(func(t *tables) {
		if c, ok := t.courses[id]; ok {
			crs, err = c, nil
		}
	})
	return crs, err
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.write(exec, func(t *tables) {
		crs.ID = t.nextID()
		t.courses[crs.ID] = crs
	})
	return crs, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := course.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.courses[crs.ID]; ok {
			t.courses[crs.ID] = crs
			err = nil
		}
	})
	return crs, err
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.deleteCourse(id) })
	return nil
}

func (repo *courseRepository) ListMembers(ctx context.Context, courseID int64, roles []course.Role, exec ...core.DBExecutor) (mbrs []course.Member, err error) {
	repo.db.read(func(t *tables) {
		mbrs = make([]course.Member, 0)
		for k, role := range t.courseUsers {
			if k.scope != courseID {
				continue
			}
			if len(roles) > 0 && !containsRole(roles, role) {
				continue
			}
			usr := t.users[k.userID]
			mbrs = append(mbrs, course.Member{CourseID: courseID, UserID: k.userID, Name: usr.Name, Email: usr.Email, Role: role})
		}
	})
	sort.Slice(mbrs, func(i, j int) bool { return mbrs[i].UserID < mbrs[j].UserID })
	return mbrs, nil
}

func containsRole(roles []course.Role, role course.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (repo *courseRepository) GetRole(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) (role course.Role, err error) {
	err = course.ErrNotEnrolled
	repo.db.read(func(t *tables) {
		if r, ok := t.courseUsers[memberKey{courseID, userID}]; ok {
			role, err = r, nil
		}
	})
	return role, err
}

func (repo *courseRepository) SetRole(ctx context.Context, courseID int64, userID string, role course.Role, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.courseUsers[memberKey{courseID, userID}] = role })
	return nil
}

func (repo *courseRepository) DeleteMember(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { delete(t.courseUsers, memberKey{courseID, userID}) })
	return nil
}
