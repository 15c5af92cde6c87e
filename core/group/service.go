package group

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
)

var (
	ErrTypeNotFound = core.NewNotFoundError("group type")
	ErrNotFound     = core.NewNotFoundError("group")
	ErrGroupClosed  = core.NewConflictError("group is closed")
	ErrGroupFull    = core.NewConflictError("group is full")

	// NowFunc returns the current time. mockable
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		// LockCourse serializes membership changes in the groups of a course until the end of the transaction.
		LockCourse(ctx context.Context, courseID int64, exec ...core.DBExecutor) error

		ListTypes(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]Type, error)
		GetType(ctx context.Context, id int64, exec ...core.DBExecutor) (Type, error)
		CreateType(ctx context.Context, t Type, exec ...core.DBExecutor) (Type, error)
		UpdateType(ctx context.Context, t Type, exec ...core.DBExecutor) (Type, error)
		DeleteType(ctx context.Context, id int64, exec ...core.DBExecutor) error
		// ListTypesToOpen lists the types scheduled to be opened at or before now, in every course.
		ListTypesToOpen(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]Type, error)
		// OpenType opens all the groups of a type and clears its scheduled opening.
		OpenType(ctx context.Context, id int64, exec ...core.DBExecutor) error

		// ListGroups lists the groups of a course, NumStudents counting members with the student role.
		ListGroups(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id int64, exec ...core.DBExecutor) (Group, error)
		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id int64, exec ...core.DBExecutor) error

		ListUserGroupIDs(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) ([]int64, error)
		IsMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) (bool, error)
		ListMembers(ctx context.Context, groupID int64, exec ...core.DBExecutor) ([]Member, error)
		// ListStudentsWithoutGroup lists the students of a course that belong to no group of a type.
		ListStudentsWithoutGroup(ctx context.Context, courseID, typeID int64, exec ...core.DBExecutor) ([]Member, error)
		AddMember(ctx context.Context, groupID int64, userID string, exec ...core.DBExecutor) error
		RemoveMembers(ctx context.Context, userID string, groupIDs []int64, exec ...core.DBExecutor) (int, error)
		// RemoveUserFromCourse removes a user from every group of a course.
		RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error
	}

	RoomGetter interface {
		GetRoom(ctx context.Context, id int64) (hierarchy.Room, error)
	}

	Service struct {
		repo  Repository
		tx    core.Transactor
		rooms RoomGetter
		lang  string
	}
)

func NewService(repo Repository, tx core.Transactor, rooms RoomGetter, conf *core.Config) *Service {
	return &Service{repo: repo, tx: tx, rooms: rooms, lang: conf.Language}
}

func (svc *Service) sortTypes(types []Type) {
	core.SortByName(svc.lang, len(types),
		func(i int) string { return types[i].Name },
		func(i, j int) { types[i], types[j] = types[j], types[i] },
	)
	for _, t := range types {
		svc.sortGroups(t.Groups)
	}
}

func (svc *Service) sortGroups(groups []Group) {
	core.SortByName(svc.lang, len(groups),
		func(i int) string { return groups[i].Name },
		func(i, j int) { groups[i], groups[j] = groups[j], groups[i] },
	)
}

func (svc *Service) load(ctx context.Context, courseID int64, exec ...core.DBExecutor) (courseState, error) {
	types, err := svc.repo.ListTypes(ctx, courseID, exec...)
	if err != nil {
		return courseState{}, errors.Wrap(err, "listing group types")
	}
	groups, err := svc.repo.ListGroups(ctx, courseID, exec...)
	if err != nil {
		return courseState{}, errors.Wrap(err, "listing groups")
	}
	return newCourseState(types, groups), nil
}

// Types

// ListTypes lists the group types of a course with their groups, sorted by name.
func (svc *Service) ListTypes(ctx context.Context, courseID int64, filter ListFilter) ([]Type, error) {
	types, err := svc.repo.ListTypes(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing group types")
	}
	groups, err := svc.repo.ListGroups(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing groups")
	}

	idx := make(map[int64]int, len(types))
	for i := range types {
		types[i].Groups = []Group{}
		idx[types[i].ID] = i
	}
	for _, g := range groups {
		if i, ok := idx[g.TypeID]; ok {
			types[i].Groups = append(types[i].Groups, g)
		}
	}
	if filter.OnlyWithGroups {
		withGroups := types[:0]
		for _, t := range types {
			if len(t.Groups) > 0 {
				withGroups = append(withGroups, t)
			}
		}
		types = withGroups
	}
	svc.sortTypes(types)
	return types, nil
}

func (svc *Service) GetType(ctx context.Context, courseID, id int64) (Type, error) {
	t, err := svc.repo.GetType(ctx, id)
	if err != nil {
		return Type{}, err
	}
	if t.CourseID != courseID {
		return Type{}, ErrTypeNotFound
	}
	groups, err := svc.repo.ListGroups(ctx, courseID)
	if err != nil {
		return Type{}, errors.Wrap(err, "listing groups")
	}
	t.Groups = []Group{}
	for _, g := range groups {
		if g.TypeID == id {
			t.Groups = append(t.Groups, g)
		}
	}
	svc.sortGroups(t.Groups)
	return t, nil
}

func (svc *Service) checkTypeName(ctx context.Context, t Type) error {
	types, err := svc.repo.ListTypes(ctx, t.CourseID)
	if err != nil {
		return errors.Wrap(err, "listing group types")
	}
	for _, other := range types {
		if other.ID != t.ID && core.SameName(other.Name, t.Name) {
			return core.NewFieldValidationError("name", "a group type with this name already exists")
		}
	}
	return nil
}

// setOpenTime schedules the opening of the groups of t. Times in the past cancel it.
func setOpenTime(t *Type, openTime *time.Time) {
	if openTime == nil || !openTime.After(NowFunc()) {
		t.OpenTime = null.Time{}
		t.MustBeOpened = false
		return
	}
	t.OpenTime = null.TimeFrom(openTime.UTC())
	t.MustBeOpened = true
}

func (svc *Service) CreateType(ctx context.Context, courseID int64, nt NewType) (Type, error) {
	nt.Clean()
	t := Type{
		CourseID:  courseID,
		Name:      nt.Name,
		Mandatory: nt.Mandatory,
		Multiple:  nt.Multiple,
	}
	setOpenTime(&t, nt.OpenTime)
	if err := svc.checkTypeName(ctx, t); err != nil {
		return Type{}, err
	}
	t, err := svc.repo.CreateType(ctx, t)
	if err != nil {
		return Type{}, err
	}
	t.Groups = []Group{}
	return t, nil
}

func (svc *Service) UpdateType(ctx context.Context, courseID, id int64, ut UpdateType) (Type, error) {
	t, err := svc.GetType(ctx, courseID, id)
	if err != nil {
		return Type{}, err
	}
	if ut.Name != nil {
		t.Name = core.CleanString(*ut.Name)
	}
	if ut.Mandatory != nil {
		t.Mandatory = *ut.Mandatory
	}
	if ut.Multiple != nil {
		t.Multiple = *ut.Multiple
	}
	if ut.ClearOpenTime {
		setOpenTime(&t, nil)
	} else if ut.OpenTime != nil {
		setOpenTime(&t, ut.OpenTime)
	}
	if err = svc.checkTypeName(ctx, t); err != nil {
		return Type{}, err
	}
	groups := t.Groups
	if t, err = svc.repo.UpdateType(ctx, t); err != nil {
		return Type{}, err
	}
	t.Groups = groups
	return t, nil
}

// RemoveType removes a group type with its groups and everything attached to them.
func (svc *Service) RemoveType(ctx context.Context, courseID, id int64) error {
	if _, err := svc.GetType(ctx, courseID, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteType(ctx, id); err != nil {
		return errors.Wrap(err, "deleting group type")
	}
	cacheFrom(ctx).invalidate()
	return nil
}

// Groups

func (svc *Service) GetGroup(ctx context.Context, courseID, id int64) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g.CourseID != courseID {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (svc *Service) checkGroupName(ctx context.Context, g Group) error {
	groups, err := svc.repo.ListGroups(ctx, g.CourseID)
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	for _, other := range groups {
		if other.ID != g.ID && other.TypeID == g.TypeID && core.SameName(other.Name, g.Name) {
			return core.NewFieldValidationError("name", "a group with this name already exists in this type")
		}
	}
	return nil
}

func (svc *Service) roomID(ctx context.Context, id int64) (null.Int64, error) {
	if id == 0 {
		return null.Int64{}, nil
	}
	if _, err := svc.rooms.GetRoom(ctx, id); err != nil {
		if errors.Cause(err) == hierarchy.ErrRoomNotFound {
			return null.Int64{}, core.NewFieldValidationError("room_id", "room not found")
		}
		return null.Int64{}, err
	}
	return null.Int64From(id), nil
}

func (svc *Service) CreateGroup(ctx context.Context, courseID, typeID int64, ng NewGroup) (Group, error) {
	if _, err := svc.GetType(ctx, courseID, typeID); err != nil {
		return Group{}, err
	}
	ng.Clean()
	g := Group{
		TypeID:    typeID,
		CourseID:  courseID,
		Name:      ng.Name,
		Open:      ng.Open,
		FileZones: ng.FileZones,
	}
	if ng.MaxStudents != nil {
		g.MaxStudents = MaxStudentsFromInput(*ng.MaxStudents)
	}
	var err error
	if g.RoomID, err = svc.roomID(ctx, ng.RoomID); err != nil {
		return Group{}, err
	}
	if err = svc.checkGroupName(ctx, g); err != nil {
		return Group{}, err
	}
	return svc.repo.CreateGroup(ctx, g)
}

func (svc *Service) UpdateGroup(ctx context.Context, courseID, id int64, ug UpdateGroup) (Group, error) {
	g, err := svc.GetGroup(ctx, courseID, id)
	if err != nil {
		return Group{}, err
	}
	if ug.TypeID != nil && *ug.TypeID != g.TypeID {
		if _, err = svc.GetType(ctx, courseID, *ug.TypeID); err != nil {
			if errors.Cause(err) == ErrTypeNotFound {
				return Group{}, core.NewFieldValidationError("type_id", "group type not found")
			}
			return Group{}, err
		}
		g.TypeID = *ug.TypeID
	}
	if ug.Name != nil {
		g.Name = core.CleanString(*ug.Name)
	}
	if ug.RoomID != nil {
		if g.RoomID, err = svc.roomID(ctx, *ug.RoomID); err != nil {
			return Group{}, err
		}
	}
	if ug.MaxStudents != nil {
		g.MaxStudents = MaxStudentsFromInput(*ug.MaxStudents)
	}
	if ug.Open != nil {
		g.Open = *ug.Open
	}
	if ug.FileZones != nil {
		g.FileZones = *ug.FileZones
	}
	if err = svc.checkGroupName(ctx, g); err != nil {
		return Group{}, err
	}
	return svc.repo.UpdateGroup(ctx, g)
}

// RemoveGroup removes a group with its memberships, attendance and timetable associations.
func (svc *Service) RemoveGroup(ctx context.Context, courseID, id int64) error {
	if _, err := svc.GetGroup(ctx, courseID, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteGroup(ctx, id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	cacheFrom(ctx).invalidate()
	return nil
}

// Membership

// MyGroups lists the groups of a course a user belongs to.
func (svc *Service) MyGroups(ctx context.Context, courseID int64, userID string) ([]Group, error) {
	st, err := svc.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing user groups")
	}
	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		if g, ok := st.groups[id]; ok {
			groups = append(groups, g)
		}
	}
	svc.sortGroups(groups)
	return groups, nil
}

// MyGroupIDs lists the ids of the groups of a course a user belongs to.
func (svc *Service) MyGroupIDs(ctx context.Context, courseID int64, userID string) ([]int64, error) {
	ids, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing user groups")
	}
	return ids, nil
}

func (svc *Service) Members(ctx context.Context, courseID, groupID int64) ([]Member, error) {
	if _, err := svc.GetGroup(ctx, courseID, groupID); err != nil {
		return nil, err
	}
	mbrs, err := svc.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "listing members")
	}
	core.SortByName(svc.lang, len(mbrs),
		func(i int) string { return mbrs[i].Name },
		func(i, j int) { mbrs[i], mbrs[j] = mbrs[j], mbrs[i] },
	)
	return mbrs, nil
}

func (svc *Service) StudentsWithoutGroup(ctx context.Context, courseID, typeID int64) ([]Member, error) {
	if _, err := svc.GetType(ctx, courseID, typeID); err != nil {
		return nil, err
	}
	mbrs, err := svc.repo.ListStudentsWithoutGroup(ctx, courseID, typeID)
	if err != nil {
		return nil, errors.Wrap(err, "listing students without group")
	}
	core.SortByName(svc.lang, len(mbrs),
		func(i int) string { return mbrs[i].Name },
		func(i, j int) { mbrs[i], mbrs[j] = mbrs[j], mbrs[i] },
	)
	return mbrs, nil
}

// CheckSelection verifies that the wanted groups belong to the course and that
// at most one group of each single-enrolment type is wanted.
func (svc *Service) CheckSelection(ctx context.Context, courseID int64, wanted []int64) error {
	st, err := svc.load(ctx, courseID)
	if err != nil {
		return err
	}
	return st.checkSelection(core.UniqueInt64(wanted), true)
}

// apply removes and adds memberships of a user and records them.
func (svc *Service) apply(ctx context.Context, userID string, toRemove, toAdd []int64, exec core.DBExecutor) (Changes, error) {
	ch := Changes{Removed: []int64{}, Added: []int64{}}
	if len(toRemove) > 0 {
		if _, err := svc.repo.RemoveMembers(ctx, userID, toRemove, exec); err != nil {
			return Changes{}, errors.Wrap(err, "removing memberships")
		}
		ch.Removed = toRemove
	}
	for _, id := range toAdd {
		if err := svc.repo.AddMember(ctx, id, userID, exec); err != nil {
			return Changes{}, errors.Wrap(err, "adding membership")
		}
	}
	if len(toAdd) > 0 {
		ch.Added = toAdd
	}
	return ch, nil
}

func (svc *Service) changeGroups(
	ctx context.Context, courseID int64, userID string, isStudent, studentRules bool, wanted []int64,
) (Changes, error) {
	wanted = core.UniqueInt64(wanted)
	var ch Changes
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if isStudent {
			if err := svc.repo.LockCourse(ctx, courseID, exec); err != nil {
				return errors.Wrap(err, "locking course groups")
			}
		}
		st, err := svc.load(ctx, courseID, exec)
		if err != nil {
			return err
		}
		if err = st.checkSelection(wanted, isStudent); err != nil {
			return err
		}
		current, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID, exec)
		if err != nil {
			return errors.Wrap(err, "listing user groups")
		}
		toRemove, toAdd := diff(current, wanted)
		if isStudent && studentRules {
			if err = st.checkStudentChanges(toRemove, toAdd); err != nil {
				return err
			}
		}
		ch, err = svc.apply(ctx, userID, toRemove, toAdd, exec)
		return err
	})
	if err != nil {
		return Changes{}, err
	}
	cacheFrom(ctx).invalidate()
	countChanges(ch)
	return ch, nil
}

// ChangeMyGroups replaces the groups of a course the user belongs to by wanted.
// Students can neither leave nor join closed groups, nor join full ones.
// The whole change is done under the course lock so concurrent requests cannot break single enrolment.
func (svc *Service) ChangeMyGroups(ctx context.Context, courseID int64, userID string, isStudent bool, wanted []int64) (Changes, error) {
	return svc.changeGroups(ctx, courseID, userID, isStudent, true, wanted)
}

// ChangeUserGroups replaces the groups of another user. Group state is not checked.
func (svc *Service) ChangeUserGroups(ctx context.Context, courseID int64, userID string, isStudent bool, wanted []int64) (Changes, error) {
	return svc.changeGroups(ctx, courseID, userID, isStudent, false, wanted)
}

// EnrolUserInGroups adds a user to groups. In single-enrolment types the user first leaves
// the other groups of the type.
func (svc *Service) EnrolUserInGroups(ctx context.Context, courseID int64, userID string, groupIDs []int64) (Changes, error) {
	groupIDs = core.UniqueInt64(groupIDs)
	var ch Changes
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.LockCourse(ctx, courseID, exec); err != nil {
			return errors.Wrap(err, "locking course groups")
		}
		st, err := svc.load(ctx, courseID, exec)
		if err != nil {
			return err
		}
		if err = st.checkSelection(groupIDs, true); err != nil {
			return err
		}
		current, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID, exec)
		if err != nil {
			return errors.Wrap(err, "listing user groups")
		}
		var toRemove, toAdd []int64
		for _, id := range groupIDs {
			toRemove = append(toRemove, st.siblingsOf(id, current)...)
			if !core.ContainsInt64(current, id) {
				toAdd = append(toAdd, id)
			}
		}
		ch, err = svc.apply(ctx, userID, core.UniqueInt64(toRemove), toAdd, exec)
		return err
	})
	if err != nil {
		return Changes{}, err
	}
	cacheFrom(ctx).invalidate()
	countChanges(ch)
	return ch, nil
}

// RemoveUserFromGroups removes a user from some groups of a course and returns the number of memberships removed.
func (svc *Service) RemoveUserFromGroups(ctx context.Context, courseID int64, userID string, groupIDs []int64) (int, error) {
	st, err := svc.load(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if err = st.checkSelection(groupIDs, false); err != nil {
		return 0, err
	}
	if len(groupIDs) == 0 {
		return 0, nil
	}
	n, err := svc.repo.RemoveMembers(ctx, userID, core.UniqueInt64(groupIDs))
	if err != nil {
		return 0, errors.Wrap(err, "removing memberships")
	}
	cacheFrom(ctx).invalidate()
	membershipChanges.WithLabelValues("remove").Add(float64(n))
	return n, nil
}

// RemoveUserFromAllGroupsInCourse removes a user from every group of a course.
func (svc *Service) RemoveUserFromAllGroupsInCourse(ctx context.Context, courseID int64, userID string) (int, error) {
	ids, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "listing user groups")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := svc.repo.RemoveMembers(ctx, userID, ids)
	if err != nil {
		return 0, errors.Wrap(err, "removing memberships")
	}
	cacheFrom(ctx).invalidate()
	membershipChanges.WithLabelValues("remove").Add(float64(n))
	return n, nil
}

// OpenGroupsAutomatically opens the groups of every type whose scheduled opening time has come
// and returns the number of types opened.
func (svc *Service) OpenGroupsAutomatically(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		types, err := svc.repo.ListTypesToOpen(ctx, now, exec)
		if err != nil {
			return errors.Wrap(err, "listing group types to open")
		}
		for _, t := range types {
			if err = svc.repo.OpenType(ctx, t.ID, exec); err != nil {
				return errors.Wrapf(err, "opening groups of type %d", t.ID)
			}
		}
		n = len(types)
		return nil
	})
	if err != nil {
		return 0, err
	}
	groupsOpened.Add(float64(n))
	return n, nil
}

// NumMandatoryTypesIDontBelong counts the mandatory types where the user has no group
// although at least one of their groups is open and has room.
func (svc *Service) NumMandatoryTypesIDontBelong(ctx context.Context, courseID int64, userID string) (int, error) {
	st, err := svc.load(ctx, courseID)
	if err != nil {
		return 0, err
	}
	mine, err := svc.repo.ListUserGroupIDs(ctx, courseID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "listing user groups")
	}
	belongs := make(map[int64]bool)
	for _, id := range mine {
		belongs[st.groups[id].TypeID] = true
	}
	available := make(map[int64]bool)
	for _, g := range st.groups {
		if g.Open && !g.IsFull() {
			available[g.TypeID] = true
		}
	}
	var n int
	for _, t := range st.types {
		if t.Mandatory && !belongs[t.ID] && available[t.ID] {
			n++
		}
	}
	return n, nil
}

// IBelongTo reports whether a user is a member of a group. The answer is memoized in ctx
// when it carries a cache (see WithCache) until a membership change is made through the service.
func (svc *Service) IBelongTo(ctx context.Context, groupID int64, userID string) (bool, error) {
	c := cacheFrom(ctx)
	if belongs, ok := c.get(groupID, userID); ok {
		return belongs, nil
	}
	belongs, err := svc.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return false, errors.Wrap(err, "checking membership")
	}
	c.set(groupID, userID, belongs)
	return belongs, nil
}
