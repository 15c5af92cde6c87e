package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	"github.com/acanas/swad-core-sub004/core/resource"
	"github.com/acanas/swad-core-sub004/core/timetable"
	"github.com/acanas/swad-core-sub004/core/user"
	"github.com/acanas/swad-core-sub004/testutil"
)

func TestServer_login(t *testing.T) {
	srv, _, _ := setup(t)

	tests := []httpTest{
		{
			name:     "missing credentials",
			path:     "/v1/auth/token",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "wrong password",
			path:     "/v1/auth/token",
			body:     marshal(t, LoginRequest{Username: "ana", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"authentication failed"}`),
		},
		{
			name:     "by email",
			path:     "/v1/auth/token",
			body:     marshal(t, LoginRequest{Username: "ana@swad.test", Password: "Pwd12345!"}),
			wantCode: http.StatusOK,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
	}
	runHTTPTests(t, srv, tests)

	rec := do(srv, http.MethodPost, "/v1/auth/token", "", marshal(t, LoginRequest{Username: "tomas", Password: "Pwd12345!"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	decode(t, rec, &resp)

	rec = do(srv, http.MethodGet, "/v1/users/me", resp.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decode(t, rec, &me)
	assert.Equal(t, "tomas", me.Username)
}

func TestServer_authRequired(t *testing.T) {
	srv, _, seed := setup(t)

	tests := []httpTest{
		{name: "courses", path: "/v1/courses"},
		{name: "course", path: fmt.Sprintf("/v1/courses/%d", seed.Course.ID)},
		{name: "countries", path: "/v1/countries"},
		{name: "my timetable", path: "/v1/users/me/timetable"},
		{name: "clipboard", path: fmt.Sprintf("/v1/courses/%d/clipboard", seed.Course.ID)},
		{name: "bad token", path: "/v1/courses", token: "not.a.token"},
	}
	for i := range tests {
		tests[i].wantCode = http.StatusUnauthorized
	}
	runHTTPTests(t, srv, tests)
}

func TestServer_hierarchy(t *testing.T) {
	srv, _, seed := setup(t)
	adminTk := getToken(t, srv, seed.Admin)
	studentTk := getToken(t, srv, seed.Student1)

	country := marshal(t, hierarchy.NewCountry{Alpha2: "PT", Name: "Portugal"})

	runHTTPTests(t, srv, []httpTest{
		{name: "list countries", path: "/v1/countries", token: studentTk, wantCode: http.StatusOK},
		{name: "create as student", method: http.MethodPost, path: "/v1/countries", body: country, token: studentTk, wantCode: http.StatusForbidden},
		{name: "create as admin", method: http.MethodPost, path: "/v1/countries", body: country, token: adminTk, wantCode: http.StatusCreated},
		{name: "invalid alpha2", method: http.MethodPost, path: "/v1/countries", body: []byte(`{"alpha2":"p1","name":"X"}`), token: adminTk, wantCode: http.StatusBadRequest},
		{name: "unknown country", path: "/v1/countries/9999", token: studentTk, wantCode: http.StatusNotFound},
		{name: "bad id", path: "/v1/countries/abc", token: studentTk, wantCode: http.StatusNotFound},
		{
			name:     "remove non empty",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/v1/countries/%d", seed.Country.ID),
			token:    adminTk,
			wantCode: http.StatusConflict,
		},
		{name: "system map", path: "/v1/map", token: studentTk, wantCode: http.StatusOK},
		{name: "center rooms", path: fmt.Sprintf("/v1/centers/%d/rooms", seed.Center.ID), token: studentTk, wantCode: http.StatusOK},
	})

	// any user can propose an institution
	body := marshal(t, hierarchy.NewInstitution{
		CountryID: seed.Country.ID,
		Names:     hierarchy.Names{ShortName: "UJA", FullName: "Universidad de Jaén"},
	})
	rec := do(srv, http.MethodPost, "/v1/institutions", studentTk, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ins hierarchy.Institution
	decode(t, rec, &ins)
	assert.True(t, ins.IsPending())
}

func TestServer_course(t *testing.T) {
	srv, env, seed := setup(t)
	outsider := testutil.CreateUser(t, env.UserRepo, "Out Sider", "outsider", "out@swad.test", "Pwd12345!", []string{user.RoleStudent}, true)
	crsPath := fmt.Sprintf("/v1/courses/%d", seed.Course.ID)

	runHTTPTests(t, srv, []httpTest{
		{name: "student", path: crsPath, token: getToken(t, srv, seed.Student1), wantCode: http.StatusOK},
		{name: "admin not enrolled", path: crsPath, token: getToken(t, srv, seed.Admin), wantCode: http.StatusOK},
		{name: "not enrolled", path: crsPath, token: getToken(t, srv, outsider), wantCode: http.StatusForbidden},
		{name: "unknown course", path: "/v1/courses/9999", token: getToken(t, srv, seed.Student1), wantCode: http.StatusNotFound},
		{
			name:     "enrol as student",
			method:   http.MethodPut,
			path:     crsPath + "/users/" + outsider.ID,
			body:     []byte(`{"role":"student"}`),
			token:    getToken(t, srv, seed.Student1),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "enrol as teacher",
			method:   http.MethodPut,
			path:     crsPath + "/users/" + outsider.ID,
			body:     []byte(`{"role":"student"}`),
			token:    getToken(t, srv, seed.Teacher),
			wantCode: http.StatusOK,
		},
		{name: "now enrolled", path: crsPath, token: getToken(t, srv, outsider), wantCode: http.StatusOK},
	})
}

func TestServer_groups(t *testing.T) {
	srv, _, seed := setup(t)
	teacherTk := getToken(t, srv, seed.Teacher)
	student1Tk := getToken(t, srv, seed.Student1)
	student2Tk := getToken(t, srv, seed.Student2)
	base := fmt.Sprintf("/v1/courses/%d", seed.Course.ID)

	rec := do(srv, http.MethodPost, base+"/group-types", student1Tk, marshal(t, group.NewType{Name: "Labs"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(srv, http.MethodPost, base+"/group-types", teacherTk, marshal(t, group.NewType{Name: "Labs", Mandatory: true}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var typ group.Type
	decode(t, rec, &typ)

	one := 1
	rec = do(srv, http.MethodPost, fmt.Sprintf("%s/group-types/%d/groups", base, typ.ID), teacherTk, marshal(t, group.NewGroup{
		Name: "L1", RoomID: seed.Room.ID, MaxStudents: &one, Open: true,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grp group.Group
	decode(t, rec, &grp)

	var mine MyGroupsResponse
	rec = do(srv, http.MethodGet, base+"/groups/mine", student1Tk)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &mine)
	assert.Empty(t, mine.Groups)
	assert.Equal(t, 1, mine.MissingMandatoryTypes)

	selection := marshal(t, group.Selection{GroupIDs: []int64{grp.ID}})
	rec = do(srv, http.MethodPut, base+"/groups/mine", student1Tk, selection)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ch group.Changes
	decode(t, rec, &ch)
	assert.Equal(t, []int64{grp.ID}, ch.Added)

	// the only vacancy is taken
	rec = do(srv, http.MethodPut, base+"/groups/mine", student2Tk, selection)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	runHTTPTests(t, srv, []httpTest{
		{name: "members as student", path: fmt.Sprintf("%s/groups/%d/members", base, grp.ID), token: student1Tk, wantCode: http.StatusForbidden},
		{name: "members as teacher", path: fmt.Sprintf("%s/groups/%d/members", base, grp.ID), token: teacherTk, wantCode: http.StatusOK},
		{name: "ungrouped", path: fmt.Sprintf("%s/group-types/%d/ungrouped", base, typ.ID), token: teacherTk, wantCode: http.StatusOK},
		{name: "unknown group", path: base + "/groups/9999", token: teacherTk, wantCode: http.StatusNotFound},
		{
			name:     "teacher moves student",
			method:   http.MethodPost,
			path:     fmt.Sprintf("%s/users/%s/groups/remove", base, seed.Student1.ID),
			body:     selection,
			token:    teacherTk,
			wantCode: http.StatusOK,
			wantData: []byte(`{"removed":1}`),
		},
	})
}

func TestServer_attendance(t *testing.T) {
	srv, _, seed := setup(t)
	teacherTk := getToken(t, srv, seed.Teacher)
	studentTk := getToken(t, srv, seed.Student1)
	base := fmt.Sprintf("/v1/courses/%d/attendance", seed.Course.ID)

	now := time.Now().UTC().Truncate(time.Second)
	body := marshal(t, attendance.NewEvent{
		Title:     "Lab session",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	})

	rec := do(srv, http.MethodPost, base, studentTk, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(srv, http.MethodPost, base, teacherTk, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev attendance.Event
	decode(t, rec, &ev)

	evPath := fmt.Sprintf("%s/%d", base, ev.ID)
	runHTTPTests(t, srv, []httpTest{
		{name: "list", path: base, token: studentTk, wantCode: http.StatusOK},
		{name: "get", path: evPath, token: studentTk, wantCode: http.StatusOK},
		{name: "unknown", path: base + "/9999", token: studentTk, wantCode: http.StatusNotFound},
		{
			name:     "end before start",
			method:   http.MethodPost,
			path:     base,
			body:     marshal(t, attendance.NewEvent{Title: "x", StartTime: now, EndTime: now.Add(-time.Hour)}),
			token:    teacherTk,
			wantCode: http.StatusBadRequest,
		},
		{name: "hide as student", method: http.MethodPut, path: evPath + "/hide", token: studentTk, wantCode: http.StatusForbidden},
		{name: "register students as student", method: http.MethodPut, path: evPath + "/students", body: []byte(`{"students":[]}`), token: studentTk, wantCode: http.StatusForbidden},
		{name: "summary", path: fmt.Sprintf("/v1/courses/%d/attendance-summary?event=%d", seed.Course.ID, ev.ID), token: teacherTk, wantCode: http.StatusOK},
		{name: "summary bad event", path: fmt.Sprintf("/v1/courses/%d/attendance-summary?event=x", seed.Course.ID), token: teacherTk, wantCode: http.StatusBadRequest},
	})

	rec = do(srv, http.MethodGet, evPath+"/qr", teacherTk)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestServer_clipboard(t *testing.T) {
	srv, env, seed := setup(t)
	teacherTk := getToken(t, srv, seed.Teacher)
	base := fmt.Sprintf("/v1/courses/%d/clipboard", seed.Course.ID)

	now := time.Now().UTC()
	ev, err := env.Attendance.Create(
		context.Background(), seed.Course.ID, seed.Teacher.ID,
		attendance.NewEvent{Title: "Exam review", StartTime: now, EndTime: now.Add(time.Hour)},
	)
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{name: "student", path: base, token: getToken(t, srv, seed.Student1), wantCode: http.StatusForbidden},
		{name: "empty", path: base, token: teacherTk, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name:     "invalid type",
			method:   http.MethodPost,
			path:     base,
			body:     []byte(`{"type":"xyz","code":1}`),
			token:    teacherTk,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing resource",
			method:   http.MethodPost,
			path:     base,
			body:     marshal(t, resource.NewLink{Type: resource.TypeAttendance, Code: 9999}),
			token:    teacherTk,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "copy",
			method:   http.MethodPost,
			path:     base,
			body:     marshal(t, resource.NewLink{Type: resource.TypeAttendance, Code: ev.ID}),
			token:    teacherTk,
			wantCode: http.StatusCreated,
		},
	})

	rec := do(srv, http.MethodGet, base, teacherTk)
	require.Equal(t, http.StatusOK, rec.Code)
	var links []resource.Link
	decode(t, rec, &links)
	require.Len(t, links, 1)
	assert.Equal(t, "Exam review", links[0].Title)

	runHTTPTests(t, srv, []httpTest{
		{name: "remove unknown type", method: http.MethodDelete, path: base + "/xyz/1", token: teacherTk, wantCode: http.StatusNotFound},
		{name: "remove missing", method: http.MethodDelete, path: base + "/att/9999", token: teacherTk, wantCode: http.StatusNotFound},
		{name: "remove", method: http.MethodDelete, path: fmt.Sprintf("%s/att/%d", base, ev.ID), token: teacherTk, wantCode: http.StatusNoContent},
		{name: "clear", method: http.MethodDelete, path: base, token: teacherTk, wantCode: http.StatusNoContent},
	})
}

func TestServer_timetable(t *testing.T) {
	srv, _, seed := setup(t)
	teacherTk := getToken(t, srv, seed.Teacher)
	studentTk := getToken(t, srv, seed.Student1)
	base := fmt.Sprintf("/v1/courses/%d/timetable", seed.Course.ID)

	lecture := marshal(t, timetable.Modification{
		Weekday: 1, Interval: 4, ClassType: timetable.ClassLecture, DurationMinutes: 120, Info: "Theory",
	})

	runHTTPTests(t, srv, []httpTest{
		{name: "view", path: base, token: studentTk, wantCode: http.StatusOK},
		{name: "editing as student", path: base + "?editing=true", token: studentTk, wantCode: http.StatusForbidden},
		{name: "editing as teacher", path: base + "?editing=true", token: teacherTk, wantCode: http.StatusOK},
		{name: "modify as student", method: http.MethodPut, path: base, body: lecture, token: studentTk, wantCode: http.StatusForbidden},
		{name: "modify bad weekday", method: http.MethodPut, path: base, body: []byte(`{"weekday":9,"class_type":"lecture"}`), token: teacherTk, wantCode: http.StatusBadRequest},
		{name: "modify bad class type", method: http.MethodPut, path: base, body: []byte(`{"class_type":"party"}`), token: teacherTk, wantCode: http.StatusBadRequest},
		{name: "modify", method: http.MethodPut, path: base, body: lecture, token: teacherTk, wantCode: http.StatusOK},
		{name: "my timetable", path: "/v1/users/me/timetable", token: studentTk, wantCode: http.StatusOK},
		{name: "tutoring of teacher", path: "/v1/users/" + seed.Teacher.ID + "/tutoring", token: studentTk, wantCode: http.StatusOK},
		{
			name:     "modify tutoring of another",
			method:   http.MethodPut,
			path:     "/v1/users/" + seed.Teacher.ID + "/tutoring",
			body:     marshal(t, timetable.Modification{Weekday: 2, Interval: 2, ClassType: timetable.ClassTutoring, DurationMinutes: 60}),
			token:    studentTk,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "modify own tutoring",
			method:   http.MethodPut,
			path:     "/v1/users/" + seed.Teacher.ID + "/tutoring",
			body:     marshal(t, timetable.Modification{Weekday: 2, Interval: 2, ClassType: timetable.ClassTutoring, DurationMinutes: 60}),
			token:    teacherTk,
			wantCode: http.StatusOK,
		},
	})

	rec := do(srv, http.MethodGet, "/v1/users/me/timetable", studentTk)
	require.Equal(t, http.StatusOK, rec.Code)
	var view timetable.View
	decode(t, rec, &view)
	found := false
	for _, row := range view.Rows {
		for _, day := range row.Days {
			for _, cell := range day {
				if cell.ClassType == timetable.ClassLecture && cell.Info == "Theory" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "lecture not found in student timetable")
}
