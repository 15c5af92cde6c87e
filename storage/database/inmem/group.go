package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

type groupRepository struct {
	db *DB
}

var (
	_ group.Repository  = (*groupRepository)(nil) // interface compliance check
	_ course.Unenroller = (*groupRepository)(nil)
)

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

// LockCourse is a no-op: membership changes already run inside serialized transactions.
func (repo *groupRepository) LockCourse(ctx context.Context, courseID int64, exec ...core.DBExecutor) error {
	return nil
}

// Types

func (repo *groupRepository) ListTypes(ctx context.Context, courseID int64, exec ...core.DBExecutor) (types []group.Type, err error) {
	repo.db.read(func(t *tables) {
		types = sortedByID(t.grpTypes, func(typ group.Type) bool { return typ.CourseID == courseID })
	})
	return types, nil
}

func (repo *groupRepository) GetType(ctx context.Context, id int64, exec ...core.DBExecutor) (typ group.Type, err error) {
	err = group.ErrTypeNotFound
	repo.db.read(func(t *tables) {
		if tp, ok := t.grpTypes[id]; ok {
			typ, err = tp, nil
		}
	})
	return typ, err
}

func (repo *groupRepository) CreateType(ctx context.Context, typ group.Type, exec ...core.DBExecutor) (group.Type, error) {
	typ.Groups = nil
	repo.db.write(exec, func(t *tables) {
		typ.ID = t.nextID()
		t.grpTypes[typ.ID] = typ
	})
	return typ, nil
}

func (repo *groupRepository) UpdateType(ctx context.Context, typ group.Type, exec ...core.DBExecutor) (group.Type, error) {
	typ.Groups = nil
	err := group.ErrTypeNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.grpTypes[typ.ID]; ok {
			t.grpTypes[typ.ID] = typ
			err = nil
		}
	})
	return typ, err
}

func (repo *groupRepository) DeleteType(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.deleteType(id) })
	return nil
}

func (repo *groupRepository) ListTypesToOpen(ctx context.Context, now time.Time, exec ...core.DBExecutor) (types []group.Type, err error) {
	repo.db.read(func(t *tables) {
		types = sortedByID(t.grpTypes, func(typ group.Type) bool {
			return typ.MustBeOpened && typ.OpenTime.Valid && !typ.OpenTime.Time.After(now)
		})
	})
	return types, nil
}

func (repo *groupRepository) OpenType(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		typ, ok := t.grpTypes[id]
		if !ok {
			return
		}
		typ.MustBeOpened = false
		typ.OpenTime = null.Time{}
		t.grpTypes[id] = typ
		for gID, g := range t.groups {
			if g.TypeID == id {
				g.Open = true
				t.groups[gID] = g
			}
		}
	})
	return nil
}

// Groups

func (t *tables) numStudents(g group.Group) int {
	var n int
	for k := range t.grpUsers {
		if k.scope == g.ID && t.courseUsers[memberKey{g.CourseID, k.userID}] == course.RoleStudent {
			n++
		}
	}
	return n
}

func (repo *groupRepository) ListGroups(ctx context.Context, courseID int64, exec ...core.DBExecutor) (groups []group.Group, err error) {
	repo.db.read(func(t *tables) {
		groups = sortedByID(t.groups, func(g group.Group) bool { return g.CourseID == courseID })
		for i := range groups {
			groups[i].NumStudents = t.numStudents(groups[i])
		}
	})
	return groups, nil
}

func (repo *groupRepository) GetGroup(ctx context.Context, id int64, exec ...core.DBExecutor) (g group.Group, err error) {
	err = group.ErrNotFound
	repo.db.read(func(t *tables) {
		if gr, ok := t.groups[id]; ok {
			gr.NumStudents = t.numStudents(gr)
			g, err = gr, nil
		}
	})
	return g, err
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	g.NumStudents = 0
	repo.db.write(exec, func(t *tables) {
		g.ID = t.nextID()
		t.groups[g.ID] = g
	})
	return g, nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	err := group.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.groups[g.ID]; ok {
			stored := g
			stored.NumStudents = 0
			t.groups[g.ID] = stored
			g.NumStudents = t.numStudents(g)
			err = nil
		}
	})
	return g, err
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.deleteGroup(id) })
	return nil
}

// Membership

func (t *tables) userGroupIDs(courseID int64, userID string) []int64 {
	ids := make([]int64, 0)
	for k := range t.grpUsers {
		if k.userID == userID && t.groups[k.scope].CourseID == courseID {
			ids = append(ids, k.scope)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (repo *groupRepository) ListUserGroupIDs(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) (ids []int64, err error) {
	repo.db.read(func(t *tables) { ids = t.userGroupIDs(courseID, userID) })
	return ids, nil
}

func (repo *groupRepository) IsMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) (ok bool, err error) {
	repo.db.read(func(t *tables) { ok = t.grpUsers[memberKey{groupID, userID}] })
	return ok, nil
}

func (repo *groupRepository) ListMembers(ctx context.Context, groupID int64, exec ...core.DBExecutor) (mbrs []group.Member, err error) {
	repo.db.read(func(t *tables) {
		mbrs = make([]group.Member, 0)
		courseID := t.groups[groupID].CourseID
		for k := range t.grpUsers {
			if k.scope != groupID {
				continue
			}
			usr := t.users[k.userID]
			mbrs = append(mbrs, group.Member{
				GroupID: groupID,
				UserID:  k.userID,
				Name:    usr.Name,
				Email:   usr.Email,
				Role:    string(t.courseUsers[memberKey{courseID, k.userID}]),
			})
		}
	})
	sort.Slice(mbrs, func(i, j int) bool { return mbrs[i].UserID < mbrs[j].UserID })
	return mbrs, nil
}

func (repo *groupRepository) ListStudentsWithoutGroup(ctx context.Context, courseID, typeID int64, exec ...core.DBExecutor) (mbrs []group.Member, err error) {
	repo.db.read(func(t *tables) {
		mbrs = make([]group.Member, 0)
		for k, role := range t.courseUsers {
			if k.scope != courseID || role != course.RoleStudent {
				continue
			}
			var inType bool
			for _, id := range t.userGroupIDs(courseID, k.userID) {
				if t.groups[id].TypeID == typeID {
					inType = true
					break
				}
			}
			if inType {
				continue
			}
			usr := t.users[k.userID]
			mbrs = append(mbrs, group.Member{UserID: k.userID, Name: usr.Name, Email: usr.Email, Role: string(role)})
		}
	})
	sort.Slice(mbrs, func(i, j int) bool { return mbrs[i].UserID < mbrs[j].UserID })
	return mbrs, nil
}

func (repo *groupRepository) AddMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.grpUsers[memberKey{groupID, userID}] = true })
	return nil
}

func (repo *groupRepository) RemoveMembers(ctx context.Context, userID string, groupIDs []int64, exec ...core.DBExecutor) (n int, err error) {
	repo.db.write(exec, func(t *tables) {
		for _, id := range groupIDs {
			k := memberKey{id, userID}
			if t.grpUsers[k] {
				delete(t.grpUsers, k)
				n++
			}
		}
	})
	return n, nil
}

func (repo *groupRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		for _, id := range t.userGroupIDs(courseID, userID) {
			delete(t.grpUsers, memberKey{id, userID})
		}
	})
	return nil
}
