package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
	"github.com/volatiletech/null/v8"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

var (
	ErrNotFound    = core.NewNotFoundError("attendance event")
	ErrEventClosed = core.NewConflictError("attendance event is not open")

	// NowFunc returns the current time. mockable
	NowFunc = func() time.Time { return time.Now().UTC() }

	qrSize = 256
)

type (
	Repository interface {
		ListEvents(ctx context.Context, filter RepoFilter, exec ...core.DBExecutor) ([]Event, error)
		// GetEvent returns an event with its description and groups.
		GetEvent(ctx context.Context, id int64, exec ...core.DBExecutor) (Event, error)
		CreateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		// UpdateEvent updates an event and replaces its groups.
		UpdateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id int64, exec ...core.DBExecutor) error
		CountEvents(ctx context.Context, courseID int64, exec ...core.DBExecutor) (int, error)
		RemoveGroupFromEvents(ctx context.Context, groupID int64, exec ...core.DBExecutor) error

		ListRecords(ctx context.Context, eventID int64, exec ...core.DBExecutor) ([]Record, error)
		// ListCourseRecords lists the records of every event of a course.
		ListCourseRecords(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]Record, error)
		UpsertRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) error
		// DeleteAbsentWithoutComments removes the records that carry no information.
		DeleteAbsentWithoutComments(ctx context.Context, eventID int64, exec ...core.DBExecutor) (int, error)
		RemoveUserFromCourse(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error
	}

	CourseReader interface {
		Get(ctx context.Context, id int64) (course.Course, error)
		Members(ctx context.Context, courseID int64, roles ...course.Role) ([]course.Member, error)
	}

	GroupReader interface {
		ListTypes(ctx context.Context, courseID int64, filter group.ListFilter) ([]group.Type, error)
		IBelongTo(ctx context.Context, groupID int64, userID string) (bool, error)
		Members(ctx context.Context, courseID, groupID int64) ([]group.Member, error)
	}

	Service struct {
		repo    Repository
		tx      core.Transactor
		courses CourseReader
		groups  GroupReader
		mailSvc core.EmailService
		logger  core.Logger
		baseURL string
		lang    string
	}
)

func NewService(
	repo Repository, tx core.Transactor, courses CourseReader, groups GroupReader,
	mailSvc core.EmailService, logger core.Logger, conf *core.Config,
) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		courses: courses,
		groups:  groups,
		mailSvc: mailSvc,
		logger:  logger,
		baseURL: conf.FrontendBaseURL,
		lang:    conf.Language,
	}
}

// URL returns the address where students register in an event.
func (svc *Service) URL(courseID, eventID int64) string {
	return fmt.Sprintf("%s/courses/%d/attendance/%d", svc.baseURL, courseID, eventID)
}

// canSee reports whether viewer can see ev: teachers see every event, students only visible
// events without groups or with one of their groups.
func (svc *Service) canSee(ctx context.Context, ev Event, viewer course.Viewer) (bool, error) {
	if viewer.IsTeacher() {
		return true, nil
	}
	if ev.Hidden {
		return false, nil
	}
	if len(ev.GroupIDs) == 0 {
		return true, nil
	}
	for _, id := range ev.GroupIDs {
		belongs, err := svc.groups.IBelongTo(ctx, id, viewer.UserID)
		if err != nil || belongs {
			return belongs, err
		}
	}
	return false, nil
}

// List lists the events of a course. Hidden events are only listed to teachers.
func (svc *Service) List(ctx context.Context, courseID int64, viewer course.Viewer, filter ListFilter) ([]Event, error) {
	filter.Clean()
	rf := RepoFilter{
		CourseID:   courseID,
		WithHidden: viewer.IsTeacher(),
		Order:      filter.Order,
		Oldest:     filter.Oldest,
	}
	if filter.Which == MyEvents {
		rf.MemberID = viewer.UserID
	}
	evs, err := svc.repo.ListEvents(ctx, rf)
	if err != nil {
		return nil, errors.Wrap(err, "listing events")
	}
	now := NowFunc()
	for i := range evs {
		evs[i].Open = evs[i].IsOpenAt(now)
	}
	return evs, nil
}

// Get returns an event of a course visible to viewer.
func (svc *Service) Get(ctx context.Context, courseID, id int64, viewer course.Viewer) (Event, error) {
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if ev.CourseID != courseID {
		return Event{}, ErrNotFound
	}
	ok, err := svc.canSee(ctx, ev, viewer)
	if err != nil {
		return Event{}, errors.Wrap(err, "checking visibility")
	}
	if !ok {
		return Event{}, ErrNotFound
	}
	ev.Open = ev.IsOpenAt(NowFunc())
	return ev, nil
}

func (svc *Service) checkEvent(ctx context.Context, ev Event) error {
	if ev.EndTime.Before(ev.StartTime) {
		return core.NewFieldValidationError("end_time", "end time must not be before start time")
	}

	evs, err := svc.repo.ListEvents(ctx, RepoFilter{CourseID: ev.CourseID, WithHidden: true})
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	for _, other := range evs {
		if other.ID != ev.ID && core.SameName(other.Title, ev.Title) {
			return core.NewFieldValidationError("title", "an attendance event with this title already exists")
		}
	}

	if len(ev.GroupIDs) == 0 {
		return nil
	}
	types, err := svc.groups.ListTypes(ctx, ev.CourseID, group.ListFilter{OnlyWithGroups: true})
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	var courseGroups []int64
	for _, t := range types {
		for _, g := range t.Groups {
			courseGroups = append(courseGroups, g.ID)
		}
	}
	for _, id := range ev.GroupIDs {
		if !core.ContainsInt64(courseGroups, id) {
			return core.NewFieldValidationError("group_ids", fmt.Sprintf("group %d does not belong to this course", id))
		}
	}
	return nil
}

// Create creates an event authored by authorID. Students concerned by a visible event are notified by email.
func (svc *Service) Create(ctx context.Context, courseID int64, authorID string, ne NewEvent) (Event, error) {
	ne.Clean()
	ev := Event{
		CourseID:          courseID,
		Hidden:            ne.Hidden,
		AuthorID:          null.NewString(authorID, authorID != ""),
		StartTime:         ne.StartTime.UTC(),
		EndTime:           ne.EndTime.UTC(),
		CommentTchVisible: ne.CommentTchVisible,
		Title:             ne.Title,
		Description:       ne.Description,
		GroupIDs:          core.UniqueInt64(ne.GroupIDs),
	}
	if err := svc.checkEvent(ctx, ev); err != nil {
		return Event{}, err
	}
	ev, err := svc.repo.CreateEvent(ctx, ev)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	ev.Open = ev.IsOpenAt(NowFunc())
	if !ev.Hidden {
		svc.notify(ctx, ev)
	}
	return ev, nil
}

func (svc *Service) Update(ctx context.Context, courseID, id int64, ue UpdateEvent) (Event, error) {
	ev, err := svc.Get(ctx, courseID, id, course.Viewer{Admin: true})
	if err != nil {
		return Event{}, err
	}
	if ue.Title != nil {
		ev.Title = core.CleanString(*ue.Title)
	}
	if ue.Description != nil {
		ev.Description = core.CleanString(*ue.Description)
	}
	if ue.StartTime != nil {
		ev.StartTime = ue.StartTime.UTC()
	}
	if ue.EndTime != nil {
		ev.EndTime = ue.EndTime.UTC()
	}
	if ue.CommentTchVisible != nil {
		ev.CommentTchVisible = *ue.CommentTchVisible
	}
	if ue.GroupIDs != nil {
		ev.GroupIDs = core.UniqueInt64(*ue.GroupIDs)
	}
	if err = svc.checkEvent(ctx, ev); err != nil {
		return Event{}, err
	}
	if ev, err = svc.repo.UpdateEvent(ctx, ev); err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	ev.Open = ev.IsOpenAt(NowFunc())
	return ev, nil
}

func (svc *Service) SetHidden(ctx context.Context, courseID, id int64, hidden bool) (Event, error) {
	ev, err := svc.Get(ctx, courseID, id, course.Viewer{Admin: true})
	if err != nil {
		return Event{}, err
	}
	if ev.Hidden == hidden {
		return ev, nil
	}
	ev.Hidden = hidden
	if ev, err = svc.repo.UpdateEvent(ctx, ev); err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	ev.Open = ev.IsOpenAt(NowFunc())
	return ev, nil
}

// Remove removes an event with its records and group associations.
func (svc *Service) Remove(ctx context.Context, courseID, id int64) error {
	if _, err := svc.Get(ctx, courseID, id, course.Viewer{Admin: true}); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, id)
}

// Title returns the title of an event of a course, hidden or not.
func (svc *Service) Title(ctx context.Context, courseID, id int64) (string, error) {
	ev, err := svc.Get(ctx, courseID, id, course.Viewer{Admin: true})
	if err != nil {
		return "", err
	}
	return ev.Title, nil
}

func (svc *Service) CountEvents(ctx context.Context, courseID int64) (int, error) {
	return svc.repo.CountEvents(ctx, courseID)
}

// RemoveUser removes the records of a user in every event of a course.
func (svc *Service) RemoveUser(ctx context.Context, courseID int64, userID string) error {
	return svc.repo.RemoveUserFromCourse(ctx, courseID, userID)
}

// RemoveGroup detaches a group from every event.
func (svc *Service) RemoveGroup(ctx context.Context, groupID int64) error {
	return svc.repo.RemoveGroupFromEvents(ctx, groupID)
}

// students returns the students concerned by an event: the students of its groups,
// or every student of the course when it has no groups.
func (svc *Service) students(ctx context.Context, ev Event) ([]course.Member, error) {
	if len(ev.GroupIDs) == 0 {
		return svc.courses.Members(ctx, ev.CourseID, course.RoleStudent)
	}
	seen := make(map[string]bool)
	var stds []course.Member
	for _, gid := range ev.GroupIDs {
		mbrs, err := svc.groups.Members(ctx, ev.CourseID, gid)
		if err != nil {
			return nil, err
		}
		for _, m := range mbrs {
			if course.Role(m.Role) != course.RoleStudent || seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			stds = append(stds, course.Member{
				CourseID: ev.CourseID, UserID: m.UserID, Name: m.Name, Email: m.Email, Role: course.RoleStudent,
			})
		}
	}
	core.SortByName(svc.lang, len(stds),
		func(i int) string { return stds[i].Name },
		func(i, j int) { stds[i], stds[j] = stds[j], stds[i] },
	)
	return stds, nil
}

func (svc *Service) recordsByUser(ctx context.Context, eventID int64, exec ...core.DBExecutor) (map[string]Record, error) {
	recs, err := svc.repo.ListRecords(ctx, eventID, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	byUser := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byUser[rec.UserID] = rec
	}
	return byUser, nil
}

// Students lists the attendance of the students of an event. A student only gets their own record,
// with the teacher comment blanked unless the event shows it.
func (svc *Service) Students(ctx context.Context, courseID, id int64, viewer course.Viewer) ([]Record, error) {
	ev, err := svc.Get(ctx, courseID, id, viewer)
	if err != nil {
		return nil, err
	}
	stds, err := svc.students(ctx, ev)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	byUser, err := svc.recordsByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(stds))
	for _, std := range stds {
		if !viewer.IsTeacher() && std.UserID != viewer.UserID {
			continue
		}
		rec, ok := byUser[std.UserID]
		if !ok {
			rec = Record{EventID: id, UserID: std.UserID}
		}
		rec.Name = std.Name
		if !viewer.IsTeacher() && !ev.CommentTchVisible {
			rec.CommentTch = ""
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RegisterStudents sets the attendance of the students of an event. Students of the event left out
// of regs are marked absent. Records of absent students without comments are then removed.
func (svc *Service) RegisterStudents(ctx context.Context, courseID, id int64, viewer course.Viewer, regs []StudentRegistration) ([]Record, error) {
	ev, err := svc.Get(ctx, courseID, id, viewer)
	if err != nil {
		return nil, err
	}
	stds, err := svc.students(ctx, ev)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	eligible := make(map[string]bool, len(stds))
	for _, std := range stds {
		eligible[std.UserID] = true
	}
	byReg := make(map[string]StudentRegistration, len(regs))
	for _, reg := range regs {
		if !eligible[reg.UserID] {
			return nil, core.NewFieldValidationError("students",
				fmt.Sprintf("user %s is not a student of this event", reg.UserID))
		}
		byReg[reg.UserID] = reg
	}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		byUser, err := svc.recordsByUser(ctx, id, exec)
		if err != nil {
			return err
		}
		for _, std := range stds {
			rec, ok := byUser[std.UserID]
			if !ok {
				rec = Record{EventID: id, UserID: std.UserID}
			}
			if reg, ok := byReg[std.UserID]; ok {
				rec.Present = reg.Present
				rec.CommentTch = core.Truncate(core.CleanString(reg.CommentTch), MaxCommentLength)
			} else {
				rec.Present = false
			}
			if err = svc.repo.UpsertRecord(ctx, rec, exec); err != nil {
				return errors.Wrap(err, "saving record")
			}
		}
		_, err = svc.repo.DeleteAbsentWithoutComments(ctx, id, exec)
		return errors.Wrap(err, "deleting empty records")
	})
	if err != nil {
		return nil, err
	}
	return svc.Students(ctx, courseID, id, viewer)
}

// RegisterMe stores the comment of a student on an event while it is open.
func (svc *Service) RegisterMe(ctx context.Context, courseID, id int64, viewer course.Viewer, mr MyRegistration) (Record, error) {
	ev, err := svc.Get(ctx, courseID, id, viewer)
	if err != nil {
		return Record{}, err
	}
	if !viewer.IsStudent() {
		return Record{}, core.ErrPermissionDenied
	}
	if !ev.Open {
		return Record{}, ErrEventClosed
	}

	var rec Record
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		byUser, err := svc.recordsByUser(ctx, id, exec)
		if err != nil {
			return err
		}
		var ok bool
		if rec, ok = byUser[viewer.UserID]; !ok {
			rec = Record{EventID: id, UserID: viewer.UserID}
		}
		rec.CommentStd = core.Truncate(core.CleanString(mr.CommentStd), MaxCommentLength)
		if err = svc.repo.UpsertRecord(ctx, rec, exec); err != nil {
			return errors.Wrap(err, "saving record")
		}
		_, err = svc.repo.DeleteAbsentWithoutComments(ctx, id, exec)
		return errors.Wrap(err, "deleting empty records")
	})
	if err != nil {
		return Record{}, err
	}
	if !ev.CommentTchVisible {
		rec.CommentTch = ""
	}
	return rec, nil
}

// Summary returns the attendance of users to events of a course. Empty eventIDs selects every event,
// empty userIDs every student. A student only gets their own row.
func (svc *Service) Summary(ctx context.Context, courseID int64, viewer course.Viewer, eventIDs []int64, userIDs []string) (Summary, error) {
	all, err := svc.List(ctx, courseID, viewer, ListFilter{Which: AllEvents, Order: OrderStart, Oldest: true})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Events: []Event{}, Rows: []SummaryRow{}}
	for _, ev := range all {
		if len(eventIDs) == 0 || core.ContainsInt64(eventIDs, ev.ID) {
			sum.Events = append(sum.Events, ev)
		}
	}

	stds, err := svc.courses.Members(ctx, courseID, course.RoleStudent)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing students")
	}
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	recs, err := svc.repo.ListCourseRecords(ctx, courseID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing records")
	}
	present := make(map[int64]map[string]bool)
	for _, rec := range recs {
		if !rec.Present {
			continue
		}
		if present[rec.EventID] == nil {
			present[rec.EventID] = make(map[string]bool)
		}
		present[rec.EventID][rec.UserID] = true
	}

	for _, std := range stds {
		if !viewer.IsTeacher() && std.UserID != viewer.UserID {
			continue
		}
		if len(wanted) > 0 && !wanted[std.UserID] {
			continue
		}
		row := SummaryRow{UserID: std.UserID, Name: std.Name, Present: make([]bool, len(sum.Events))}
		for i, ev := range sum.Events {
			if present[ev.ID][std.UserID] {
				row.Present[i] = true
				row.NumAttended++
			}
		}
		sum.Rows = append(sum.Rows, row)
	}
	return sum, nil
}

// QRCode returns a PNG image encoding the address where students register in an event.
func (svc *Service) QRCode(ctx context.Context, courseID, id int64, viewer course.Viewer) ([]byte, error) {
	if _, err := svc.Get(ctx, courseID, id, viewer); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(svc.URL(courseID, id), qrcode.Medium, qrSize)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	return png, nil
}

// notify emails the students concerned by a new event.
func (svc *Service) notify(ctx context.Context, ev Event) {
	crs, err := svc.courses.Get(ctx, ev.CourseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("attendance.notify: %v", err), err)
		return
	}
	stds, err := svc.students(ctx, ev)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("attendance.notify: %v", err), err)
		return
	}

	data := map[string]string{
		"Course": crs.FullName,
		"Title":  ev.Title,
		"Start":  ev.StartTime.Format(time.RFC1123),
		"End":    ev.EndTime.Format(time.RFC1123),
		"URL":    svc.URL(ev.CourseID, ev.ID),
	}
	msgs := make([]*core.EmailMessage, 0, len(stds))
	for _, std := range stds {
		if std.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: std.Name, Address: std.Email}},
			Subject:      fmt.Sprintf("%s: %s", crs.ShortName, ev.Title),
			TemplateName: "attendance_event",
			TemplateData: data,
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}
