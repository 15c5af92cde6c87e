package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

const (
	grpTypeColumns = `id, course_id, name, mandatory, multiple, must_be_opened, open_time`

	// num_students only counts members enrolled as students in the course.
	grpGroupSelect = `SELECT g.id, g.type_id, t.course_id, g.name, g.room_id, g.max_students, g.open, g.file_zones,
		(SELECT COUNT(*) FROM grp_user gu
			JOIN course_user cu ON cu.user_id = gu.user_id AND cu.course_id = t.course_id AND cu.role = '` + string(course.RoleStudent) + `'
			WHERE gu.group_id = g.id) AS num_students
		FROM grp_group g JOIN grp_type t ON t.id = g.type_id`
)

type groupRepository struct {
	db *sqlx.DB
}

var (
	_ group.Repository  = (*groupRepository)(nil) // interface compliance check
	_ course.Unenroller = (*groupRepository)(nil)
)

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

// LockCourse locks the row of the course until the end of the transaction.
func (repo groupRepository) LockCourse(ctx context.Context, courseID int64, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `SELECT id FROM course WHERE id = $1 FOR UPDATE`, courseID)
	return errors.Wrap(err, "locking course")
}

// Types

func (repo groupRepository) ListTypes(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]group.Type, error) {
	types := make([]group.Type, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &types,
		`SELECT `+grpTypeColumns+` FROM grp_type WHERE course_id = $1 ORDER BY id`, courseID)
	return types, errors.Wrap(err, "listing group types")
}

func (repo groupRepository) GetType(ctx context.Context, id int64, exec ...core.DBExecutor) (group.Type, error) {
	var t group.Type
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &t, `SELECT `+grpTypeColumns+` FROM grp_type WHERE id = $1`, id)
	if err != nil {
		return group.Type{}, trapNoRowsErr(err, group.ErrTypeNotFound, "getting group type")
	}
	return t, nil
}

func (repo groupRepository) CreateType(ctx context.Context, t group.Type, exec ...core.DBExecutor) (group.Type, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO grp_type (course_id, name, mandatory, multiple, must_be_opened, open_time)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.CourseID, t.Name, t.Mandatory, t.Multiple, t.MustBeOpened, t.OpenTime,
	).Scan(&t.ID)
	return t, errors.Wrap(err, "inserting group type")
}

func (repo groupRepository) UpdateType(ctx context.Context, t group.Type, exec ...core.DBExecutor) (group.Type, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		UPDATE grp_type SET name = $2, mandatory = $3, multiple = $4, must_be_opened = $5, open_time = $6
		WHERE id = $1`,
		t.ID, t.Name, t.Mandatory, t.Multiple, t.MustBeOpened, t.OpenTime)
	if err != nil {
		return group.Type{}, errors.Wrap(err, "updating group type")
	}
	return t, checkAffected(res, group.ErrTypeNotFound, "updating group type")
}

func (repo groupRepository) DeleteType(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM grp_type WHERE id = $1`, id)
	return errors.Wrap(err, "deleting group type")
}

func (repo groupRepository) ListTypesToOpen(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]group.Type, error) {
	types := make([]group.Type, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &types, `
		SELECT `+grpTypeColumns+` FROM grp_type
		WHERE must_be_opened AND open_time IS NOT NULL AND open_time <= $1
		ORDER BY id`, now.UTC())
	return types, errors.Wrap(err, "listing group types to open")
}

func (repo groupRepository) OpenType(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	ext := getExec(repo.db, exec)
	if _, err := ext.ExecContext(ctx, `UPDATE grp_group SET open = TRUE WHERE type_id = $1`, id); err != nil {
		return errors.Wrap(err, "opening groups")
	}
	_, err := ext.ExecContext(ctx, `UPDATE grp_type SET must_be_opened = FALSE, open_time = NULL WHERE id = $1`, id)
	return errors.Wrap(err, "clearing open time")
}

// Groups

func (repo groupRepository) ListGroups(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &groups,
		grpGroupSelect+` WHERE t.course_id = $1 ORDER BY g.id`, courseID)
	return groups, errors.Wrap(err, "listing groups")
}

func (repo groupRepository) GetGroup(ctx context.Context, id int64, exec ...core.DBExecutor) (group.Group, error) {
	var g group.Group
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &g, grpGroupSelect+` WHERE g.id = $1`, id)
	if err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "getting group")
	}
	return g, nil
}

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx, `
		INSERT INTO grp_group (type_id, name, room_id, max_students, open, file_zones)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		g.TypeID, g.Name, g.RoomID, g.MaxStudents, g.Open, g.FileZones,
	).Scan(&g.ID)
	g.NumStudents = 0
	return g, errors.Wrap(err, "inserting group")
}

func (repo groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	ext := getExec(repo.db, exec)
	res, err := ext.ExecContext(ctx, `
		UPDATE grp_group SET type_id = $2, name = $3, room_id = $4, max_students = $5, open = $6, file_zones = $7
		WHERE id = $1`,
		g.ID, g.TypeID, g.Name, g.RoomID, g.MaxStudents, g.Open, g.FileZones)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if err = checkAffected(res, group.ErrNotFound, "updating group"); err != nil {
		return group.Group{}, err
	}
	return repo.GetGroup(ctx, g.ID, exec...)
}

// DeleteGroup relies on ON DELETE CASCADE for memberships, event associations and timetable classes.
func (repo groupRepository) DeleteGroup(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM grp_group WHERE id = $1`, id)
	return errors.Wrap(err, "deleting group")
}

// Membership

func (repo groupRepository) ListUserGroupIDs(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) ([]int64, error) {
	ids := make([]int64, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &ids, `
		SELECT gu.group_id FROM grp_user gu
		JOIN grp_group g ON g.id = gu.group_id
		JOIN grp_type t ON t.id = g.type_id
		WHERE t.course_id = $1 AND gu.user_id::text = $2
		ORDER BY gu.group_id`, courseID, userID)
	return ids, errors.Wrap(err, "listing user groups")
}

func (repo groupRepository) IsMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &ok,
		`SELECT EXISTS (SELECT 1 FROM grp_user WHERE group_id = $1 AND user_id::text = $2)`, groupID, userID)
	return ok, errors.Wrap(err, "checking membership")
}

func (repo groupRepository) ListMembers(ctx context.Context, groupID int64, exec ...core.DBExecutor) ([]group.Member, error) {
	mbrs := make([]group.Member, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &mbrs, `
		SELECT gu.group_id, gu.user_id, u.name, COALESCE(u.email, '') AS email, COALESCE(cu.role, '') AS role
		FROM grp_user gu
		JOIN "user" u ON u.id = gu.user_id
		JOIN grp_group g ON g.id = gu.group_id
		JOIN grp_type t ON t.id = g.type_id
		LEFT JOIN course_user cu ON cu.course_id = t.course_id AND cu.user_id = gu.user_id
		WHERE gu.group_id = $1
		ORDER BY gu.user_id`, groupID)
	return mbrs, errors.Wrap(err, "listing members")
}

func (repo groupRepository) ListStudentsWithoutGroup(ctx context.Context, courseID, typeID int64, exec ...core.DBExecutor) ([]group.Member, error) {
	mbrs := make([]group.Member, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &mbrs, `
		SELECT 0 AS group_id, cu.user_id, u.name, COALESCE(u.email, '') AS email, cu.role
		FROM course_user cu
		JOIN "user" u ON u.id = cu.user_id
		WHERE cu.course_id = $1 AND cu.role = $3
			AND NOT EXISTS (
				SELECT 1 FROM grp_user gu JOIN grp_group g ON g.id = gu.group_id
				WHERE g.type_id = $2 AND gu.user_id = cu.user_id)
		ORDER BY cu.user_id`, courseID, typeID, string(course.RoleStudent))
	return mbrs, errors.Wrap(err, "listing students without group")
}

func (repo groupRepository) AddMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx,
		`INSERT INTO grp_user (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, groupID, userID)
	return errors.Wrap(err, "adding member")
}

func (repo groupRepository) RemoveMembers(ctx context.Context, userID string, groupIDs []int64, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx,
		`DELETE FROM grp_user WHERE user_id::text = $1 AND group_id = ANY($2)`, userID, pq.Array(groupIDs))
	if err != nil {
		return 0, errors.Wrap(err, "removing members")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "removing members")
}

func (repo groupRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		DELETE FROM grp_user WHERE user_id::text = $2 AND group_id IN (
			SELECT g.id FROM grp_group g JOIN grp_type t ON t.id = g.type_id WHERE t.course_id = $1)`,
		courseID, userID)
	return errors.Wrap(err, "removing user from groups")
}
