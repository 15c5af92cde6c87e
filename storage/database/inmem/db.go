// Package inmemdb stores everything in process memory. It backs the unit and HTTP tests.
package inmemdb

import (
	"context"
	"reflect"
	"sync"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	"github.com/acanas/swad-core-sub004/core/resource"
	"github.com/acanas/swad-core-sub004/core/timetable"
	"github.com/acanas/swad-core-sub004/core/user"
)

type (
	memberKey struct {
		scope  int64
		userID string
	}

	clipKey struct {
		userID   string
		courseID int64
		typ      resource.Type
		code     int64
	}

	tables struct {
		seq int64

		users map[string]user.User

		countries    map[int64]hierarchy.Country
		institutions map[int64]hierarchy.Institution
		centers      map[int64]hierarchy.Center
		degrees      map[int64]hierarchy.Degree
		rooms        map[int64]hierarchy.Room

		courses     map[int64]course.Course
		courseUsers map[memberKey]course.Role

		grpTypes map[int64]group.Type
		groups   map[int64]group.Group
		grpUsers map[memberKey]bool // key scope: group

		attEvents map[int64]attendance.Event
		attUsers  map[memberKey]attendance.Record // key scope: event

		tmtCourse   map[int64][]timetable.Class
		tmtTutoring map[string][]timetable.Class

		clipboard map[clipKey]resource.Link
	}

	DB struct {
		mu sync.RWMutex
		t  *tables

		txMu sync.Mutex
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{t: newTables()}
}

func newTables() *tables {
	return &tables{
		users:        make(map[string]user.User),
		countries:    make(map[int64]hierarchy.Country),
		institutions: make(map[int64]hierarchy.Institution),
		centers:      make(map[int64]hierarchy.Center),
		degrees:      make(map[int64]hierarchy.Degree),
		rooms:        make(map[int64]hierarchy.Room),
		courses:      make(map[int64]course.Course),
		courseUsers:  make(map[memberKey]course.Role),
		grpTypes:     make(map[int64]group.Type),
		groups:       make(map[int64]group.Group),
		grpUsers:     make(map[memberKey]bool),
		attEvents:    make(map[int64]attendance.Event),
		attUsers:     make(map[memberKey]attendance.Record),
		tmtCourse:    make(map[int64][]timetable.Class),
		tmtTutoring:  make(map[string][]timetable.Class),
		clipboard:    make(map[clipKey]resource.Link),
	}
}

// clone copies every table. Stored values are never mutated in place, so copying the maps is enough.
func (t *tables) clone() *tables {
	c := newTables()
	c.seq = t.seq
	copyMap(c.users, t.users)
	copyMap(c.countries, t.countries)
	copyMap(c.institutions, t.institutions)
	copyMap(c.centers, t.centers)
	copyMap(c.degrees, t.degrees)
	copyMap(c.rooms, t.rooms)
	copyMap(c.courses, t.courses)
	copyMap(c.courseUsers, t.courseUsers)
	copyMap(c.grpTypes, t.grpTypes)
	copyMap(c.groups, t.groups)
	copyMap(c.grpUsers, t.grpUsers)
	copyMap(c.attEvents, t.attEvents)
	copyMap(c.attUsers, t.attUsers)
	copyMap(c.tmtCourse, t.tmtCourse)
	copyMap(c.tmtTutoring, t.tmtTutoring)
	copyMap(c.clipboard, t.clipboard)
	return c
}

// changesSince returns the functions restoring the rows changed since before.
func (t *tables) changesSince(before *tables) []func(t *tables) {
	var undo []func(t *tables)
	undo = append(undo, changed(before.users, t.users, func(t *tables) map[string]user.User { return t.users })...)
	undo = append(undo, changed(before.countries, t.countries, func(t *tables) map[int64]hierarchy.Country { return t.countries })...)
	undo = append(undo, changed(before.institutions, t.institutions, func(t *tables) map[int64]hierarchy.Institution { return t.institutions })...)
	undo = append(undo, changed(before.centers, t.centers, func(t *tables) map[int64]hierarchy.Center { return t.centers })...)
	undo = append(undo, changed(before.degrees, t.degrees, func(t *tables) map[int64]hierarchy.Degree { return t.degrees })...)
	undo = append(undo, changed(before.rooms, t.rooms, func(t *tables) map[int64]hierarchy.Room { return t.rooms })...)
	undo = append(undo, changed(before.courses, t.courses, func(t *tables) map[int64]course.Course { return t.courses })...)
	undo = append(undo, changed(before.courseUsers, t.courseUsers, func(t *tables) map[memberKey]course.Role { return t.courseUsers })...)
	undo = append(undo, changed(before.grpTypes, t.grpTypes, func(t *tables) map[int64]group.Type { return t.grpTypes })...)
	undo = append(undo, changed(before.groups, t.groups, func(t *tables) map[int64]group.Group { return t.groups })...)
	undo = append(undo, changed(before.grpUsers, t.grpUsers, func(t *tables) map[memberKey]bool { return t.grpUsers })...)
	undo = append(undo, changed(before.attEvents, t.attEvents, func(t *tables) map[int64]attendance.Event { return t.attEvents })...)
	undo = append(undo, changed(before.attUsers, t.attUsers, func(t *tables) map[memberKey]attendance.Record { return t.attUsers })...)
	undo = append(undo, changed(before.tmtCourse, t.tmtCourse, func(t *tables) map[int64][]timetable.Class { return t.tmtCourse })...)
	undo = append(undo, changed(before.tmtTutoring, t.tmtTutoring, func(t *tables) map[string][]timetable.Class { return t.tmtTutoring })...)
	undo = append(undo, changed(before.clipboard, t.clipboard, func(t *tables) map[clipKey]resource.Link { return t.clipboard })...)
	return undo
}

// changed returns the functions putting back the entries of before that differ in after,
// and removing the entries added to after.
func changed[K comparable, V any](before, after map[K]V, table func(t *tables) map[K]V) []func(t *tables) {
	var undo []func(t *tables)
	for k, v := range before {
		if w, ok := after[k]; !ok || !reflect.DeepEqual(v, w) {
			k, v := k, v
			undo = append(undo, func(t *tables) { table(t)[k] = v })
		}
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			k := k
			undo = append(undo, func(t *tables) { delete(table(t), k) })
		}
	}
	return undo
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

// txExec marks the repository calls made inside a transaction. Its methods are never called.
type txExec struct {
	core.DBExecutor

	undo []func(t *tables)
}

// InTx runs fn alone: transactions are serialized. When fn fails, the writes made with the executor
// handed to fn are undone; writes made at the same time outside the transaction stay.
// Identifiers are not reused after a rollback.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	tx := &txExec{}
	if err := fn(tx); err != nil {
		db.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i](db.t)
		}
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) read(fn func(t *tables)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.t)
}

func (db *DB) write(exec []core.DBExecutor, fn func(t *tables)) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, ok := txOf(exec)
	if !ok {
		fn(db.t)
		return
	}
	before := db.t.clone()
	fn(db.t)
	tx.undo = append(tx.undo, db.t.changesSince(before)...)
}

func txOf(exec []core.DBExecutor) (*txExec, bool) {
	if len(exec) == 0 {
		return nil, false
	}
	tx, ok := exec[0].(*txExec)
	return tx, ok
}

// deleteGroup drops a group with its memberships, its attendance links and its classes.
func (t *tables) deleteGroup(id int64) {
	delete(t.groups, id)
	for k := range t.grpUsers {
		if k.scope == id {
			delete(t.grpUsers, k)
		}
	}
	for evID, ev := range t.attEvents {
		if core.ContainsInt64(ev.GroupIDs, id) {
			ev.GroupIDs = without(ev.GroupIDs, id)
			t.attEvents[evID] = ev
		}
	}
	for crsID, classes := range t.tmtCourse {
		kept := make([]timetable.Class, 0, len(classes))
		for _, c := range classes {
			if !c.GroupID.Valid || c.GroupID.Int64 != id {
				kept = append(kept, c)
			}
		}
		t.tmtCourse[crsID] = kept
	}
}

func (t *tables) deleteType(id int64) {
	delete(t.grpTypes, id)
	for gID, g := range t.groups {
		if g.TypeID == id {
			t.deleteGroup(gID)
		}
	}
}

func (t *tables) deleteEvent(id int64) {
	delete(t.attEvents, id)
	for k := range t.attUsers {
		if k.scope == id {
			delete(t.attUsers, k)
		}
	}
}

// deleteCourse drops a course and everything scoped to it.
func (t *tables) deleteCourse(id int64) {
	delete(t.courses, id)
	for k := range t.courseUsers {
		if k.scope == id {
			delete(t.courseUsers, k)
		}
	}
	for tID, typ := range t.grpTypes {
		if typ.CourseID == id {
			t.deleteType(tID)
		}
	}
	for evID, ev := range t.attEvents {
		if ev.CourseID == id {
			t.deleteEvent(evID)
		}
	}
	delete(t.tmtCourse, id)
	for k := range t.clipboard {
		if k.courseID == id {
			delete(t.clipboard, k)
		}
	}
}

func without(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
