package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) (err error) {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	repo.db.read(func(t *tables) {
		for _, usr := range t.users {
			if excluded[usr.ID] {
				continue
			}
			if username != "" && usr.Username == username {
				err = user.ErrUsernameExists
				return
			}
			if email != "" && usr.Email == email {
				err = user.ErrEmailExists
				return
			}
		}
	})
	return err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.write(exec, func(t *tables) { t.users[usr.ID] = usr })
	return usr, nil
}

func matchesFilter(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Username), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func userLess(a, b user.User, ord core.DBOrdering) (less, equal bool) {
	var cmp int
	switch ord.Field {
	case "name":
		cmp = strings.Compare(a.Name, b.Name)
	case "username":
		cmp = strings.Compare(a.Username, b.Username)
	case "email":
		cmp = strings.Compare(a.Email, b.Email)
	case "created_at":
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	case "last_login":
		cmp = a.LastLogin.Compare(b.LastLogin)
	}
	if !ord.Ascending {
		cmp = -cmp
	}
	return cmp < 0, cmp == 0
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var users []user.User
	repo.db.read(func(t *tables) {
		users = make([]user.User, 0, len(t.users))
		for _, usr := range t.users {
			if matchesFilter(usr, filter) {
				users = append(users, usr)
			}
		}
	})
	sort.Slice(users, func(i, j int) bool {
		for _, ord := range ordering {
			if less, equal := userLess(users[i], users[j], ord); !equal {
				return less
			}
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (usr user.User, err error) {
	match := func(u user.User) bool { return false }
	switch {
	case filter.ID != "":
		match = func(u user.User) bool { return u.ID == filter.ID }
	case filter.Username != "":
		match = func(u user.User) bool { return u.Username == filter.Username }
	case filter.Email != "":
		match = func(u user.User) bool { return u.Email == filter.Email }
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		match = func(u user.User) bool {
			return (uname != "" && u.Username == uname) || (email != "" && u.Email == email)
		}
	}

	err = user.ErrNotFound
	repo.db.read(func(t *tables) {
		for _, u := range t.users {
			if match(u) {
				usr, err = u, nil
				return
			}
		}
	})
	return usr, err
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := user.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.users[usr.ID]; ok {
			t.users[usr.ID] = usr
			err = nil
		}
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (n int, err error) {
	repo.db.write(exec, func(t *tables) {
		for _, id := range ids {
			if _, ok := t.users[id]; !ok {
				continue
			}
			delete(t.users, id)
			n++
			for k := range t.courseUsers {
				if k.userID == id {
					delete(t.courseUsers, k)
				}
			}
			for k := range t.grpUsers {
				if k.userID == id {
					delete(t.grpUsers, k)
				}
			}
			for k := range t.attUsers {
				if k.userID == id {
					delete(t.attUsers, k)
				}
			}
			delete(t.tmtTutoring, id)
			for k := range t.clipboard {
				if k.userID == id {
					delete(t.clipboard, k)
				}
			}
		}
	})
	return n, nil
}
