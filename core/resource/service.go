package resource

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
)

var (
	ErrNotFound = core.NewNotFoundError("link")

	// NowFunc returns the current time. mockable
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		// ListClipboard lists the links copied by a user in a course, most recent last.
		ListClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) ([]Link, error)
		// CopyToClipboard stores a link, refreshing the copy time when it is already there.
		CopyToClipboard(ctx context.Context, userID string, courseID int64, link Link, exec ...core.DBExecutor) error
		RemoveFromClipboard(ctx context.Context, userID string, courseID int64, typ Type, code int64, exec ...core.DBExecutor) (int, error)
		ClearClipboard(ctx context.Context, userID string, courseID int64, exec ...core.DBExecutor) error
		RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error
	}

	// TitleResolver returns the title of a resource of a course.
	TitleResolver func(ctx context.Context, courseID, code int64) (string, error)

	Service struct {
		repo Repository

		mu        sync.RWMutex
		resolvers map[Type]TitleResolver
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, resolvers: make(map[Type]TitleResolver)}
}

// RegisterTitleResolver sets how the titles of links of a type are resolved.
func (svc *Service) RegisterTitleResolver(typ Type, resolve TitleResolver) {
	svc.mu.Lock()
	svc.resolvers[typ] = resolve
	svc.mu.Unlock()
}

func (svc *Service) title(ctx context.Context, courseID int64, link Link) (string, error) {
	svc.mu.RLock()
	resolve, ok := svc.resolvers[link.Type]
	svc.mu.RUnlock()
	if !ok {
		return "", nil
	}
	title, err := resolve(ctx, courseID, link.Code)
	if err != nil {
		return "", err
	}
	return core.Truncate(title, MaxTitleLength), nil
}

// Clipboard lists the links copied by a user in a course with their titles.
// Links to resources that no longer exist are left without title.
func (svc *Service) Clipboard(ctx context.Context, userID string, courseID int64) ([]Link, error) {
	links, err := svc.repo.ListClipboard(ctx, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing clipboard")
	}
	for i := range links {
		title, err := svc.title(ctx, courseID, links[i])
		if err != nil {
			if _, ok := errors.Cause(err).(*core.NotFoundError); ok {
				continue
			}
			return nil, errors.Wrap(err, "resolving title")
		}
		links[i].Title = title
	}
	return links, nil
}

// Copy copies a link to the clipboard. The resource must exist when its type has a title resolver.
func (svc *Service) Copy(ctx context.Context, userID string, courseID int64, nl NewLink) (Link, error) {
	if !nl.Type.Valid() {
		return Link{}, core.NewFieldValidationError("type", "invalid resource type")
	}
	link := Link{Type: nl.Type, Code: nl.Code, CopyTime: NowFunc()}
	title, err := svc.title(ctx, courseID, link)
	if err != nil {
		if _, ok := errors.Cause(err).(*core.NotFoundError); ok {
			return Link{}, core.NewFieldValidationError("code", "resource not found")
		}
		return Link{}, errors.Wrap(err, "resolving title")
	}
	link.Title = title
	if err = svc.repo.CopyToClipboard(ctx, userID, courseID, link); err != nil {
		return Link{}, errors.Wrap(err, "copying link")
	}
	return link, nil
}

func (svc *Service) Remove(ctx context.Context, userID string, courseID int64, typ Type, code int64) error {
	n, err := svc.repo.RemoveFromClipboard(ctx, userID, courseID, typ, code)
	if err != nil {
		return errors.Wrap(err, "removing link")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *Service) Clear(ctx context.Context, userID string, courseID int64) error {
	return errors.Wrap(svc.repo.ClearClipboard(ctx, userID, courseID), "clearing clipboard")
}
