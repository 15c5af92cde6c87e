package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/acanas/swad-core-sub004/apps/api/echo"
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
	"github.com/acanas/swad-core-sub004/services/scheduler"
	"github.com/acanas/swad-core-sub004/storage/database"
	sqlxrepos "github.com/acanas/swad-core-sub004/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the PostgreSQL implementations of every repository.
type Repositories struct {
	dig.Out
	Tx         core.Transactor
	Users      user.Repository
	Hierarchy  hierarchy.Repository
	Courses    course.Repository
	Groups     group.Repository
	Attendance attendance.Repository
	Timetable  timetable.Repository
	Resources  resource.Repository
}

type serviceParams struct {
	dig.In
	Conf      *core.Config
	Logger    core.Logger
	Mail      core.EmailService
	Repos     repositoryParams
	Users     user.Service
	Hierarchy *hierarchy.Service
}

type repositoryParams struct {
	dig.In
	Tx         core.Transactor
	Courses    course.Repository
	Groups     group.Repository
	Attendance attendance.Repository
	Timetable  timetable.Repository
	Resources  resource.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Tx:         sqlxrepos.NewTransactor(db),
		Users:      sqlxrepos.NewUserRepository(db),
		Hierarchy:  sqlxrepos.NewHierarchyRepository(db),
		Courses:    sqlxrepos.NewCourseRepository(db),
		Groups:     sqlxrepos.NewGroupRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		Timetable:  sqlxrepos.NewTimetableRepository(db),
		Resources:  sqlxrepos.NewResourceRepository(db),
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newCourseService(p serviceParams) *course.Service {
	r := p.Repos
	// removing a member also drops their groups, attendance and clipboard in the course
	return course.NewService(r.Courses, r.Tx, p.Hierarchy, p.Users, p.Conf, r.Groups, r.Attendance, r.Resources)
}

func newGroupService(p serviceParams) *group.Service {
	return group.NewService(p.Repos.Groups, p.Repos.Tx, p.Hierarchy, p.Conf)
}

func newAttendanceService(p serviceParams, courses *course.Service, groups *group.Service) *attendance.Service {
	return attendance.NewService(p.Repos.Attendance, p.Repos.Tx, courses, groups, p.Mail, p.Logger, p.Conf)
}

func newTimetableService(p serviceParams, groups *group.Service) *timetable.Service {
	return timetable.NewService(p.Repos.Timetable, p.Repos.Tx, groups, p.Conf, p.Logger)
}

func newResourceService(repo resource.Repository, att *attendance.Service) *resource.Service {
	svc := resource.NewService(repo)
	svc.RegisterTitleResolver(resource.TypeAttendance, att.Title)
	return svc
}

func newScheduler(conf *core.Config, logger core.Logger, groups *group.Service) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, logger, groups)
}

type depsParams struct {
	dig.In
	Users      user.Service
	Hierarchy  *hierarchy.Service
	Courses    *course.Service
	Groups     *group.Service
	Attendance *attendance.Service
	Timetable  *timetable.Service
	Resources  *resource.Service
}

func newDeps(p depsParams) *echoapi.Deps {
	return &echoapi.Deps{
		UserSvc:    p.Users,
		Hierarchy:  p.Hierarchy,
		Courses:    p.Courses,
		Groups:     p.Groups,
		Attendance: p.Attendance,
		Timetable:  p.Timetable,
		Resources:  p.Resources,
	}
}

// New returns a new dependency injection dig.Container
func New(opts ...dig.Option) *dig.Container {
	c := dig.New(opts...)

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(hierarchy.NewService))
	must(c.Provide(newCourseService))
	must(c.Provide(newGroupService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newTimetableService))
	must(c.Provide(newResourceService))
	must(c.Provide(newScheduler))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
