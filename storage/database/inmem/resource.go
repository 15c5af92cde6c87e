package inmemdb

import (
	"context"
	"sort"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/resource"
)

type resourceRepository struct {
	db *DB
}

var (
	_ resource.Repository = (*resourceRepository)(nil) // interface compliance check
	_ course.Unenroller   = (*resourceRepository)(nil)
)

func NewResourceRepository(db *DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo *resourceRepository) ListClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) (links []resource.Link, err error) {
	repo.db.read(func(t *tables) {
		links = make([]resource.Link, 0)
		for k, link := range t.clipboard {
			if k.userID == userID && k.courseID == courseID {
				links = append(links, link)
			}
		}
	})
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CopyTime.Equal(links[j].CopyTime) {
			return links[i].CopyTime.Before(links[j].CopyTime)
		}
		if links[i].Type != links[j].Type {
			return links[i].Type < links[j].Type
		}
		return links[i].Code < links[j].Code
	})
	return links, nil
}

func (repo *resourceRepository) CopyToClipboard(ctx context.Context, userID string, courseID int64, link resource.Link, exec ...core.DBExecutor) error {
	link.Title = ""
	repo.db.write(exec, func(t *tables) {
		t.clipboard[clipKey{userID, courseID, link.Type, link.Code}] = link
	})
	return nil
}

func (repo *resourceRepository) RemoveFromClipboard(ctx context.Context, userID string, courseID int64, typ resource.Type, code int64, exec ...core.DBExecutor) (n int, err error) {
	k := clipKey{userID, courseID, typ, code}
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.clipboard[k]; ok {
			delete(t.clipboard, k)
			n = 1
		}
	})
	return n, nil
}

func (repo *resourceRepository) ClearClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) error {
	return repo.RemoveUserFromCourse(ctx, courseID, userID, exec...)
}

func (repo *resourceRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		for k := range t.clipboard {
			if k.userID == userID && k.courseID == courseID {
				delete(t.clipboard, k)
			}
		}
	})
	return nil
}
