package group

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
)

// courseState is the snapshot of the groups of a course used to validate membership changes.
type courseState struct {
	types  map[int64]Type
	groups map[int64]Group
}

func newCourseState(types []Type, groups []Group) courseState {
	st := courseState{
		types:  make(map[int64]Type, len(types)),
		groups: make(map[int64]Group, len(groups)),
	}
	for _, t := range types {
		st.types[t.ID] = t
	}
	for _, g := range groups {
		st.groups[g.ID] = g
	}
	return st
}

// checkSelection verifies that every wanted group belongs to the course and, when single is set,
// that no more than one group of each single-enrolment type is wanted.
func (st courseState) checkSelection(wanted []int64, single bool) error {
	chosen := make(map[int64]int64) // type -> first group chosen
	for _, id := range wanted {
		g, ok := st.groups[id]
		if !ok {
			return core.NewFieldValidationError("group_ids", fmt.Sprintf("group %d does not belong to this course", id))
		}
		t := st.types[g.TypeID]
		if !single || !t.Single() {
			continue
		}
		if prev, ok := chosen[t.ID]; ok && prev != id {
			return core.NewFieldValidationError("group_ids",
				fmt.Sprintf("only one group of type %q can be selected", t.Name))
		}
		chosen[t.ID] = id
	}
	return nil
}

// checkStudentChanges applies the rules a student must follow when changing their own groups:
// closed groups can be neither left nor joined and full groups cannot be joined.
func (st courseState) checkStudentChanges(toRemove, toAdd []int64) error {
	for _, id := range toRemove {
		if g := st.groups[id]; !g.Open {
			return errors.Wrapf(ErrGroupClosed, "leaving group %q", g.Name)
		}
	}
	for _, id := range toAdd {
		g := st.groups[id]
		if !g.Open {
			return errors.Wrapf(ErrGroupClosed, "joining group %q", g.Name)
		}
		if g.IsFull() {
			return errors.Wrapf(ErrGroupFull, "joining group %q", g.Name)
		}
	}
	return nil
}

// siblingsOf returns the groups in current that share a single-enrolment type with groupID.
func (st courseState) siblingsOf(groupID int64, current []int64) []int64 {
	g := st.groups[groupID]
	if !st.types[g.TypeID].Single() {
		return nil
	}
	var sibs []int64
	for _, id := range current {
		if id != groupID && st.groups[id].TypeID == g.TypeID {
			sibs = append(sibs, id)
		}
	}
	return sibs
}

// diff returns the groups of current not in wanted, and the groups of wanted not in current.
func diff(current, wanted []int64) (toRemove, toAdd []int64) {
	for _, id := range current {
		if !core.ContainsInt64(wanted, id) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range wanted {
		if !core.ContainsInt64(current, id) {
			toAdd = append(toAdd, id)
		}
	}
	return toRemove, toAdd
}
