package inmemdb

import (
	"context"
	"sort"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/course"
)

type attendanceRepository struct {
	db *DB
}

var (
	_ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check
	_ course.Unenroller     = (*attendanceRepository)(nil)
)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (t *tables) numPresent(eventID int64) int {
	var n int
	for k, rec := range t.attUsers {
		if k.scope == eventID && rec.Present {
			n++
		}
	}
	return n
}

func (repo *attendanceRepository) ListEvents(ctx context.Context, filter attendance.RepoFilter, exec ...core.DBExecutor) (evs []attendance.Event, err error) {
	repo.db.read(func(t *tables) {
		evs = sortedByID(t.attEvents, func(ev attendance.Event) bool {
			if ev.CourseID != filter.CourseID || (ev.Hidden && !filter.WithHidden) {
				return false
			}
			if filter.MemberID == "" || len(ev.GroupIDs) == 0 {
				return true
			}
			for _, id := range ev.GroupIDs {
				if t.grpUsers[memberKey{id, filter.MemberID}] {
					return true
				}
			}
			return false
		})
		for i := range evs {
			evs[i].NumStudents = t.numPresent(evs[i].ID)
			evs[i].Description = ""
		}
	})

	key := func(ev attendance.Event) int64 {
		if filter.Order == attendance.OrderEnd {
			return ev.EndTime.UnixNano()
		}
		return ev.StartTime.UnixNano()
	}
	sort.SliceStable(evs, func(i, j int) bool {
		ki, kj := key(evs[i]), key(evs[j])
		if ki == kj {
			return evs[i].Title < evs[j].Title
		}
		if filter.Oldest {
			return ki < kj
		}
		return ki > kj
	})
	return evs, nil
}

func (repo *attendanceRepository) GetEvent(ctx context.Context, id int64, exec ...core.DBExecutor) (ev attendance.Event, err error) {
	err = attendance.ErrNotFound
	repo.db.read(func(t *tables) {
		if e, ok := t.attEvents[id]; ok {
			e.NumStudents = t.numPresent(id)
			e.GroupIDs = append([]int64{}, e.GroupIDs...)
			ev, err = e, nil
		}
	})
	return ev, err
}

func (repo *attendanceRepository) CreateEvent(ctx context.Context, ev attendance.Event, exec ...core.DBExecutor) (attendance.Event, error) {
	ev.GroupIDs = append([]int64{}, ev.GroupIDs...)
	ev.NumStudents = 0
	repo.db.write(exec, func(t *tables) {
		ev.ID = t.nextID()
		t.attEvents[ev.ID] = ev
	})
	return ev, nil
}

func (repo *attendanceRepository) UpdateEvent(ctx context.Context, ev attendance.Event, exec ...core.DBExecutor) (attendance.Event, error) {
	ev.GroupIDs = append([]int64{}, ev.GroupIDs...)
	err := attendance.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.attEvents[ev.ID]; ok {
			t.attEvents[ev.ID] = ev
			ev.NumStudents = t.numPresent(ev.ID)
			err = nil
		}
	})
	return ev, err
}

func (repo *attendanceRepository) DeleteEvent(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) { t.deleteEvent(id) })
	return nil
}

func (repo *attendanceRepository) CountEvents(ctx context.Context, courseID int64, exec ...core.DBExecutor) (n int, err error) {
	repo.db.read(func(t *tables) {
		for _, ev := range t.attEvents {
			if ev.CourseID == courseID {
				n++
			}
		}
	})
	return n, nil
}

func (repo *attendanceRepository) RemoveGroupFromEvents(ctx context.Context, groupID int64, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		for id, ev := range t.attEvents {
			if core.ContainsInt64(ev.GroupIDs, groupID) {
				ev.GroupIDs = without(ev.GroupIDs, groupID)
				t.attEvents[id] = ev
			}
		}
	})
	return nil
}

func (t *tables) record(k memberKey, rec attendance.Record) attendance.Record {
	rec.Name = t.users[k.userID].Name
	return rec
}

func sortRecords(recs []attendance.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].EventID != recs[j].EventID {
			return recs[i].EventID < recs[j].EventID
		}
		return recs[i].UserID < recs[j].UserID
	})
}

func (repo *attendanceRepository) ListRecords(ctx context.Context, eventID int64, exec ...core.DBExecutor) (recs []attendance.Record, err error) {
	repo.db.read(func(t *tables) {
		recs = make([]attendance.Record, 0)
		for k, rec := range t.attUsers {
			if k.scope == eventID {
				recs = append(recs, t.record(k, rec))
			}
		}
	})
	sortRecords(recs)
	return recs, nil
}

func (repo *attendanceRepository) ListCourseRecords(ctx context.Context, courseID int64, exec ...core.DBExecutor) (recs []attendance.Record, err error) {
	repo.db.read(func(t *tables) {
		recs = make([]attendance.Record, 0)
		for k, rec := range t.attUsers {
			if t.attEvents[k.scope].CourseID == courseID {
				recs = append(recs, t.record(k, rec))
			}
		}
	})
	sortRecords(recs)
	return recs, nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) error {
	rec.Name = ""
	repo.db.write(exec, func(t *tables) { t.attUsers[memberKey{rec.EventID, rec.UserID}] = rec })
	return nil
}

func (repo *attendanceRepository) DeleteAbsentWithoutComments(ctx context.Context, eventID int64, exec ...core.DBExecutor) (n int, err error) {
	repo.db.write(exec, func(t *tables) {
		for k, rec := range t.attUsers {
			if k.scope == eventID && !rec.Present && rec.CommentStd == "" && rec.CommentTch == "" {
				delete(t.attUsers, k)
				n++
			}
		}
	})
	return n, nil
}

func (repo *attendanceRepository) RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error {
	repo.db.write(exec, func(t *tables) {
		for k := range t.attUsers {
			if k.userID == userID && t.attEvents[k.scope].CourseID == courseID {
				delete(t.attUsers, k)
			}
		}
	})
	return nil
}
