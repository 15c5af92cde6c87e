package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/course"
)

const attEventColumns = `e.id, e.course_id, e.hidden, e.author_id, e.start_time, e.end_time, e.comment_tch_visible, e.title,
	ARRAY(SELECT ag.group_id FROM att_group ag WHERE ag.event_id = e.id ORDER BY ag.group_id) AS group_ids,
	(SELECT COUNT(*) FROM att_user au WHERE au.event_id = e.id AND au.present) AS num_students`

type eventRow struct {
	attendance.Event
	GroupIDs pq.Int64Array `db:"group_ids"`
}

func (r eventRow) event() attendance.Event {
	ev := r.Event
	ev.StartTime = ev.StartTime.UTC()
	ev.EndTime = ev.EndTime.UTC()
	ev.GroupIDs = []int64(r.GroupIDs)
	if ev.GroupIDs == nil {
		ev.GroupIDs = []int64{}
	}
	return ev
}

type attendanceRepository struct {
	db *sqlx.DB
}

var (
	_ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check
	_ course.Unenroller     = (*attendanceRepository)(nil)
)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) ListEvents(ctx context.Context, filter attendance.RepoFilter, exec ...core.DBExecutor) ([]attendance.Event, error) {
	var w where
	w.add("e.course_id = ?", filter.CourseID)
	if !filter.WithHidden {
		w.add("NOT e.hidden")
	}
	if filter.MemberID != "" {
		w.add(`NOT EXISTS (SELECT 1 FROM att_group ag WHERE ag.event_id = e.id)
			OR EXISTS (SELECT 1 FROM att_group ag JOIN grp_user gu ON gu.group_id = ag.group_id
				WHERE ag.event_id = e.id AND gu.user_id::text = ?)`, filter.MemberID)
	}

	col, dir := "e.start_time", "DESC"
	if filter.Order == attendance.OrderEnd {
		col = "e.end_time"
	}
	if filter.Oldest {
		dir = "ASC"
	}
	q := `SELECT ` + attEventColumns + `, '' AS description FROM att_event e` + w.String() +
		` ORDER BY ` + col + ` ` + dir + `, e.title`

	ext := getExec(repo.db, exec)
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "listing events")
	}
	evs := make([]attendance.Event, 0, len(rows))
	for _, r := range rows {
		evs = append(evs, r.event())
	}
	return evs, nil
}

func (repo attendanceRepository) GetEvent(ctx context.Context, id int64, exec ...core.DBExecutor) (attendance.Event, error) {
	var r eventRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &r,
		`SELECT `+attEventColumns+`, e.description FROM att_event e WHERE e.id = $1`, id)
	if err != nil {
		return attendance.Event{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting event")
	}
	return r.event(), nil
}

func setEventGroups(ctx context.Context, ext sqlx.ExtContext, eventID int64, groupIDs []int64) error {
	if _, err := ext.ExecContext(ctx, `DELETE FROM att_group WHERE event_id = $1`, eventID); err != nil {
		return errors.Wrap(err, "clearing event groups")
	}
	if len(groupIDs) == 0 {
		return nil
	}
	_, err := ext.ExecContext(ctx,
		`INSERT INTO att_group (event_id, group_id) SELECT $1, UNNEST($2::BIGINT[]) ON CONFLICT DO NOTHING`,
		eventID, pq.Array(groupIDs))
	return errors.Wrap(err, "setting event groups")
}

func (repo attendanceRepository) CreateEvent(ctx context.Context, ev attendance.Event, exec ...core.DBExecutor) (attendance.Event, error) {
	err := inTx(ctx, repo.db, exec, func(ext sqlx.ExtContext) error {
		err := ext.QueryRowxContext(ctx, `
			INSERT INTO att_event (course_id, hidden, author_id, start_time, end_time, comment_tch_visible, title, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			ev.CourseID, ev.Hidden, ev.AuthorID, ev.StartTime.UTC(), ev.EndTime.UTC(), ev.CommentTchVisible, ev.Title, ev.Description,
		).Scan(&ev.ID)
		if err != nil {
			return errors.Wrap(err, "inserting event")
		}
		return setEventGroups(ctx, ext, ev.ID, ev.GroupIDs)
	})
	if err != nil {
		return attendance.Event{}, err
	}
	ev.NumStudents = 0
	return ev, nil
}

func (repo attendanceRepository) UpdateEvent(ctx context.Context, ev attendance.Event, exec ...core.DBExecutor) (attendance.Event, error) {
	err := inTx(ctx, repo.db, exec, func(ext sqlx.ExtContext) error {
		res, err := ext.ExecContext(ctx, `
			UPDATE att_event SET hidden = $2, start_time = $3, end_time = $4, comment_tch_visible = $5,
				title = $6, description = $7
			WHERE id = $1`,
			ev.ID, ev.Hidden, ev.StartTime.UTC(), ev.EndTime.UTC(), ev.CommentTchVisible, ev.Title, ev.Description)
		if err != nil {
			return errors.Wrap(err, "updating event")
		}
		if err = checkAffected(res, attendance.ErrNotFound, "updating event"); err != nil {
			return err
		}
		return setEventGroups(ctx, ext, ev.ID, ev.GroupIDs)
	})
	if err != nil {
		return attendance.Event{}, err
	}
	return ev, nil
}

func (repo attendanceRepository) DeleteEvent(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM att_event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return checkAffected(res, attendance.ErrNotFound, "deleting event")
}

func (repo attendanceRepository) CountEvents(ctx context.Context, courseID int64, exec ...core.DBExecutor) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &n, `SELECT COUNT(*) FROM att_event WHERE course_id = $1`, courseID)
	return n, errors.Wrap(err, "counting events")
}

func (repo attendanceRepository) RemoveGroupFromEvents(ctx context.Context, groupID int64, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM att_group WHERE group_id = $1`, groupID)
	return errors.Wrap(err, "removing group from events")
}

// Records

const attRecordSelect = `SELECT au.event_id, au.user_id, u.name, au.present, au.comment_std, au.comment_tch
	FROM att_user au JOIN "user" u ON u.id = au.user_id`

func (repo attendanceRepository) ListRecords(ctx context.Context, eventID int64, exec ...core.DBExecutor) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &recs,
		attRecordSelect+` WHERE au.event_id = $1 ORDER BY au.user_id`, eventID)
	return recs, errors.Wrap(err, "listing records")
}

func (repo attendanceRepository) ListCourseRecords(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &recs,
		attRecordSelect+` JOIN att_event e ON e.id = au.event_id WHERE e.course_id = $1 ORDER BY au.event_id, au.user_id`, courseID)
	return recs, errors.Wrap(err, "listing course records")
}

func (repo attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO att_user (event_id, user_id, present, comment_std, comment_tch) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET present = EXCLUDED.present, comment_std = EXCLUDED.comment_std, comment_tch = EXCLUDED.comment_tch`,
		rec.EventID, rec.UserID, rec.Present, rec.CommentStd, rec.CommentTch)
	return errors.Wrap(err, "upserting record")
}

func (repo attendanceRepository) DeleteAbsentWithoutComments(ctx context.Context, eventID int64, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		DELETE FROM att_user WHERE event_id = $1 AND NOT present AND comment_std = '' AND comment_tch = ''`, eventID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting empty records")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting empty records")
}

func (repo attendanceRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		DELETE FROM att_user WHERE user_id::text = $2 AND event_id IN (SELECT id FROM att_event WHERE course_id = $1)`,
		courseID, userID)
	return errors.Wrap(err, "removing user from events")
}
