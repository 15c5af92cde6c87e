package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/resource"
)

type resourceRepository struct {
	db *sqlx.DB
}

var (
	_ resource.Repository = (*resourceRepository)(nil) // interface compliance check
	_ course.Unenroller   = (*resourceRepository)(nil)
)

func NewResourceRepository(db *sqlx.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo resourceRepository) ListClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) ([]resource.Link, error) {
	links := make([]resource.Link, 0)
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &links, `
		SELECT type, code, copy_time FROM rsc_clipboard
		WHERE user_id::text = $1 AND course_id = $2
		ORDER BY copy_time, type, code`, userID, courseID)
	for i := range links {
		links[i].CopyTime = links[i].CopyTime.UTC()
	}
	return links, errors.Wrap(err, "listing clipboard")
}

func (repo resourceRepository) CopyToClipboard(ctx context.Context, userID string, courseID int64, link resource.Link, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO rsc_clipboard (user_id, course_id, type, code, copy_time) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_id, type, code) DO UPDATE SET copy_time = EXCLUDED.copy_time`,
		userID, courseID, string(link.Type), link.Code, link.CopyTime.UTC())
	return errors.Wrap(err, "copying link")
}

func (repo resourceRepository) RemoveFromClipboard(ctx context.Context, userID string, courseID int64, typ resource.Type, code int64, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		DELETE FROM rsc_clipboard WHERE user_id::text = $1 AND course_id = $2 AND type = $3 AND code = $4`,
		userID, courseID, string(typ), code)
	if err != nil {
		return 0, errors.Wrap(err, "removing link")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "removing link")
}

func (repo resourceRepository) ClearClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) error {
	return repo.RemoveUserFromCourse(ctx, courseID, userID, exec...)
}

func (repo resourceRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	_, err := getExec(repo.db, exec).ExecContext(ctx,
		`DELETE FROM rsc_clipboard WHERE user_id::text = $1 AND course_id = $2`, userID, courseID)
	return errors.Wrap(err, "clearing clipboard")
}
