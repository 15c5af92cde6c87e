// Package testutil builds the services over the in-memory store and seeds data for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/attendance"
	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	"github.com/acanas/swad-core-sub004/core/resource"
	"github.com/acanas/swad-core-sub004/core/timetable"
	"github.com/acanas/swad-core-sub004/core/user"
	emailsvc "github.com/acanas/swad-core-sub004/services/email"
	logsvc "github.com/acanas/swad-core-sub004/services/logger"
	inmemdb "github.com/acanas/swad-core-sub004/storage/database/inmem"
)

// Env holds a complete set of services sharing one in-memory database.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	Mail   *emailsvc.ServiceMock
	DB     *inmemdb.DB

	UserRepo user.Repository

	Users      user.Service
	Hierarchy  *hierarchy.Service
	Courses    *course.Service
	Groups     *group.Service
	Attendance *attendance.Service
	Timetable  *timetable.Service
	Resources  *resource.Service
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	core.ParseEmailTemplates(conf, logger)
	db := inmemdb.Open()
	mail := emailsvc.NewServiceMock(conf, logger)

	userRepo := inmemdb.NewUserRepository(db)
	groupRepo := inmemdb.NewGroupRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)
	rscRepo := inmemdb.NewResourceRepository(db)

	env := &Env{Conf: conf, Logger: logger, Mail: mail, DB: db, UserRepo: userRepo}
	env.Users = user.NewService(userRepo, mail)
	env.Hierarchy = hierarchy.NewService(inmemdb.NewHierarchyRepository(db), conf)
	env.Courses = course.NewService(inmemdb.NewCourseRepository(db), db, env.Hierarchy, env.Users, conf, groupRepo, attRepo, rscRepo)
	env.Groups = group.NewService(groupRepo, db, env.Hierarchy, conf)
	env.Attendance = attendance.NewService(attRepo, db, env.Courses, env.Groups, mail, logger, conf)
	env.Timetable = timetable.NewService(inmemdb.NewTimetableRepository(db), db, env.Groups, conf, logger)
	env.Resources = resource.NewService(rscRepo)
	env.Resources.RegisterTitleResolver(resource.TypeAttendance, env.Attendance.Title)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Seed is a course ready to be used: its branch of the tree, a room, a teacher and two students.
type Seed struct {
	Country     hierarchy.Country
	Institution hierarchy.Institution
	Center      hierarchy.Center
	Degree      hierarchy.Degree
	Room        hierarchy.Room
	Course      course.Course

	Admin    user.User
	Teacher  user.User
	Student1 user.User
	Student2 user.User
}

func (env *Env) Seed(t *testing.T) Seed {
	ctx := context.Background()
	var (
		s   Seed
		err error
	)
	must := func(err error) {
		if err != nil {
			t.Fatalf("Seed() failed: %+v", err)
		}
	}

	s.Country, err = env.Hierarchy.CreateCountry(ctx, hierarchy.NewCountry{Alpha2: "es", Name: "Spain"})
	must(err)
	s.Institution, err = env.Hierarchy.CreateInstitution(ctx, hierarchy.NewInstitution{
		CountryID: s.Country.ID,
		Names:     hierarchy.Names{ShortName: "UGR", FullName: "Universidad de Granada"},
	}, "", false)
	must(err)
	s.Center, err = env.Hierarchy.CreateCenter(ctx, hierarchy.NewCenter{
		InstitutionID: s.Institution.ID,
		Names:         hierarchy.Names{ShortName: "ETSIIT", FullName: "Escuela de Informática"},
	})
	must(err)
	s.Degree, err = env.Hierarchy.CreateDegree(ctx, hierarchy.NewDegree{
		CenterID: s.Center.ID,
		Names:    hierarchy.Names{ShortName: "GII", FullName: "Grado en Ingeniería Informática"},
	})
	must(err)
	s.Room, err = env.Hierarchy.CreateRoom(ctx, s.Center.ID, hierarchy.NewRoom{
		Names:    hierarchy.Names{ShortName: "A1", FullName: "Aula 1"},
		Capacity: 60,
	})
	must(err)
	s.Course, err = env.Courses.Create(ctx, course.NewCourse{
		DegreeID: s.Degree.ID, Year: 1, ShortName: "FP", FullName: "Fundamentos de Programación",
	})
	must(err)

	s.Admin = CreateUser(t, env.UserRepo, "Admin", "admin", "admin@swad.test", "Pwd12345!", []string{user.RoleAdmin}, true)
	s.Teacher = CreateUser(t, env.UserRepo, "Tomás Teacher", "tomas", "tomas@swad.test", "Pwd12345!", []string{user.RoleTeacher}, true)
	s.Student1 = CreateUser(t, env.UserRepo, "Ana Student", "ana", "ana@swad.test", "Pwd12345!", []string{user.RoleStudent}, true)
	s.Student2 = CreateUser(t, env.UserRepo, "Berto Student", "berto", "berto@swad.test", "Pwd12345!", []string{user.RoleStudent}, true)

	must(env.Courses.Enrol(ctx, s.Course.ID, s.Teacher.ID, course.RoleTeacher))
	must(env.Courses.Enrol(ctx, s.Course.ID, s.Student1.ID, course.RoleStudent))
	must(env.Courses.Enrol(ctx, s.Course.ID, s.Student2.ID, course.RoleStudent))
	return s
}

func (s Seed) TeacherViewer() course.Viewer {
	return course.Viewer{UserID: s.Teacher.ID, Role: course.RoleTeacher}
}

func (s Seed) StudentViewer(usr user.User) course.Viewer {
	return course.Viewer{UserID: usr.ID, Role: course.RoleStudent}
}
