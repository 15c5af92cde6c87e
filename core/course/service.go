package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	"github.com/acanas/swad-core-sub004/core/user"
)

var (
	ErrNotFound    = core.NewNotFoundError("course")
	ErrNotEnrolled = core.NewNotFoundError("enrolment")
)

type (
	Repository interface {
		// ListCourses lists the courses of a degree, or all of them when degreeID is 0.
		ListCourses(ctx context.Context, degreeID int64, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id int64, exec ...core.DBExecutor) (Course, error)
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse removes a course and everything scoped to it.
		DeleteCourse(ctx context.Context, id int64, exec ...core.DBExecutor) error

		// ListMembers lists the users enrolled in a course with one of roles, or with any role when roles is empty.
		ListMembers(ctx context.Context, courseID int64, roles []Role, exec ...core.DBExecutor) ([]Member, error)
		GetRole(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) (Role, error)
		// SetRole enrols a user or changes their role.
		SetRole(ctx context.Context, courseID int64, userID string, role Role, exec ...core.DBExecutor) error
		DeleteMember(ctx context.Context, courseID int64, userID string, exec ...core.DBExecutor) error
	}

	DegreeGetter interface {
		GetDegree(ctx context.Context, id int64) (hierarchy.Degree, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo       Repository
		tx         core.Transactor
		degrees    DegreeGetter
		users      UserGetter
		unenrolers []Unenroller
		lang       string
	}
)

func NewService(
	repo Repository, tx core.Transactor, degrees DegreeGetter, users UserGetter, conf *core.Config, unenrolers ...Unenroller,
) *Service {
	return &Service{
		repo:       repo,
		tx:         tx,
		degrees:    degrees,
		users:      users,
		unenrolers: unenrolers,
		lang:       conf.Language,
	}
}

func (svc *Service) List(ctx context.Context, degreeID int64) ([]Course, error) {
	crss, err := svc.repo.ListCourses(ctx, degreeID)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	core.SortByName(svc.lang, len(crss),
		func(i int) string { return crss[i].FullName },
		func(i, j int) { crss[i], crss[j] = crss[j], crss[i] },
	)
	return crss, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) checkNames(ctx context.Context, crs Course) error {
	siblings, err := svc.repo.ListCourses(ctx, crs.DegreeID)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	for _, s := range siblings {
		if s.ID == crs.ID || s.Year != crs.Year {
			continue
		}
		if core.SameName(s.ShortName, crs.ShortName) {
			return core.NewFieldValidationError("short_name", "a course with this short name already exists in this year")
		}
		if core.SameName(s.FullName, crs.FullName) {
			return core.NewFieldValidationError("full_name", "a course with this full name already exists in this year")
		}
	}
	return nil
}

func (svc *Service) checkDegree(ctx context.Context, degreeID int64) error {
	if _, err := svc.degrees.GetDegree(ctx, degreeID); err != nil {
		if errors.Cause(err) == hierarchy.ErrDegreeNotFound {
			return core.NewFieldValidationError("degree_id", "degree not found")
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkDegree(ctx, nc.DegreeID); err != nil {
		return Course{}, err
	}
	nc.Clean()
	crs := Course{DegreeID: nc.DegreeID, Year: nc.Year, ShortName: nc.ShortName, FullName: nc.FullName}
	if err := svc.checkNames(ctx, crs); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Update(ctx context.Context, id int64, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.DegreeID != nil && *uc.DegreeID != crs.DegreeID {
		if err = svc.checkDegree(ctx, *uc.DegreeID); err != nil {
			return Course{}, err
		}
		crs.DegreeID = *uc.DegreeID
	}
	if uc.Year != nil {
		crs.Year = *uc.Year
	}
	if uc.ShortName != nil {
		crs.ShortName = core.CleanString(*uc.ShortName)
	}
	if uc.FullName != nil {
		crs.FullName = core.CleanString(*uc.FullName)
	}
	if err = svc.checkNames(ctx, crs); err != nil {
		return Course{}, err
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Remove(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetCourse(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// GetRole returns the role of a user in a course, or ErrNotEnrolled.
func (svc *Service) GetRole(ctx context.Context, courseID int64, userID string) (Role, error) {
	return svc.repo.GetRole(ctx, courseID, userID)
}

// Members lists the users of a course sorted by name, optionally restricted to some roles.
func (svc *Service) Members(ctx context.Context, courseID int64, roles ...Role) ([]Member, error) {
	mbrs, err := svc.repo.ListMembers(ctx, courseID, roles)
	if err != nil {
		return nil, errors.Wrap(err, "listing members")
	}
	core.SortByName(svc.lang, len(mbrs),
		func(i int) string { return mbrs[i].Name },
		func(i, j int) { mbrs[i], mbrs[j] = mbrs[j], mbrs[i] },
	)
	return mbrs, nil
}

// Enrol adds a user to a course with role, or changes the role of a user already enrolled.
func (svc *Service) Enrol(ctx context.Context, courseID int64, userID string, role Role) error {
	if !role.Valid() {
		return core.NewFieldValidationError("role", "invalid role")
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := svc.repo.SetRole(ctx, courseID, userID, role); err != nil {
		return errors.Wrap(err, "setting role")
	}
	return nil
}

// Unenrol removes a user from a course together with their groups, attendance records and clipboard.
func (svc *Service) Unenrol(ctx context.Context, courseID int64, userID string) error {
	if _, err := svc.repo.GetRole(ctx, courseID, userID); err != nil {
		return err
	}
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		for _, u := range svc.unenrolers {
			if err := u.RemoveUserFromCourse(ctx, courseID, userID, exec); err != nil {
				return errors.Wrap(err, "removing user data from course")
			}
		}
		if err := svc.repo.DeleteMember(ctx, courseID, userID, exec); err != nil {
			return errors.Wrap(err, "deleting member")
		}
		return nil
	})
}
