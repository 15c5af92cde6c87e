package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core/course"
	"github.com/acanas/swad-core-sub004/core/group"
)

func (s *Server) registerGroupAPI(cg *echo.Group) {
	cg.GET("/group-types", s.listGroupTypes)
	cg.POST("/group-types", s.createGroupType, editorMiddleware)
	cg.GET("/group-types/:gt", s.retrieveGroupType)
	cg.PUT("/group-types/:gt", s.updateGroupType, editorMiddleware)
	cg.DELETE("/group-types/:gt", s.destroyGroupType, editorMiddleware)
	cg.GET("/group-types/:gt/ungrouped", s.listStudentsWithoutGroup, teachingMiddleware)
	cg.POST("/group-types/:gt/groups", s.createGroup, editorMiddleware)

	cg.GET("/groups/mine", s.myGroups)
	cg.PUT("/groups/mine", s.changeMyGroups)
	cg.GET("/groups/:grp", s.retrieveGroup)
	cg.PUT("/groups/:grp", s.updateGroup, editorMiddleware)
	cg.DELETE("/groups/:grp", s.destroyGroup, editorMiddleware)
	cg.GET("/groups/:grp/members", s.listGroupMembers, teachingMiddleware)

	cg.PUT("/users/:usr/groups", s.changeUserGroups, editorMiddleware)
	cg.POST("/users/:usr/groups/enrol", s.enrolUserInGroups, editorMiddleware)
	cg.POST("/users/:usr/groups/remove", s.removeUserFromGroups, editorMiddleware)
}

// Group types

// listGroupTypes lists the types of the course with their groups; ?with_groups=true skips empty types.
func (s *Server) listGroupTypes(ctx echo.Context) error {
	filter := group.ListFilter{OnlyWithGroups: ctx.QueryParam("with_groups") == "true"}
	types, err := s.deps.Groups.ListTypes(ctx.Request().Context(), contextCourse(ctx).ID, filter)
	if err != nil {
		return errors.Wrap(err, "listing group types")
	}
	if types == nil {
		types = []group.Type{}
	}
	return ctx.JSON(http.StatusOK, types)
}

func (s *Server) createGroupType(ctx echo.Context) error {
	var data group.NewType
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	typ, err := s.deps.Groups.CreateType(ctx.Request().Context(), contextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating group type")
	}
	return ctx.JSON(http.StatusCreated, typ)
}

func (s *Server) retrieveGroupType(ctx echo.Context) error {
	id, err := paramInt64(ctx, "gt")
	if err != nil {
		return err
	}
	typ, err := s.deps.Groups.GetType(ctx.Request().Context(), contextCourse(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting group type")
	}
	return ctx.JSON(http.StatusOK, typ)
}

func (s *Server) updateGroupType(ctx echo.Context) error {
	id, err := paramInt64(ctx, "gt")
	if err != nil {
		return err
	}
	var data group.UpdateType
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	typ, err := s.deps.Groups.UpdateType(ctx.Request().Context(), contextCourse(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating group type")
	}
	return ctx.JSON(http.StatusOK, typ)
}

func (s *Server) destroyGroupType(ctx echo.Context) error {
	id, err := paramInt64(ctx, "gt")
	if err != nil {
		return err
	}
	if err = s.deps.Groups.RemoveType(ctx.Request().Context(), contextCourse(ctx).ID, id); err != nil {
		return errors.Wrap(err, "removing group type")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) listStudentsWithoutGroup(ctx echo.Context) error {
	id, err := paramInt64(ctx, "gt")
	if err != nil {
		return err
	}
	mbrs, err := s.deps.Groups.StudentsWithoutGroup(ctx.Request().Context(), contextCourse(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "listing students without group")
	}
	if mbrs == nil {
		mbrs = []group.Member{}
	}
	return ctx.JSON(http.StatusOK, mbrs)
}

// Groups

func (s *Server) createGroup(ctx echo.Context) error {
	typeID, err := paramInt64(ctx, "gt")
	if err != nil {
		return err
	}
	var data group.NewGroup
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	grp, err := s.deps.Groups.CreateGroup(ctx.Request().Context(), contextCourse(ctx).ID, typeID, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (s *Server) retrieveGroup(ctx echo.Context) error {
	id, err := paramInt64(ctx, "grp")
	if err != nil {
		return err
	}
	grp, err := s.deps.Groups.GetGroup(ctx.Request().Context(), contextCourse(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (s *Server) updateGroup(ctx echo.Context) error {
	id, err := paramInt64(ctx, "grp")
	if err != nil {
		return err
	}
	var data group.UpdateGroup
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	grp, err := s.deps.Groups.UpdateGroup(ctx.Request().Context(), contextCourse(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (s *Server) destroyGroup(ctx echo.Context) error {
	id, err := paramInt64(ctx, "grp")
	if err != nil {
		return err
	}
	if err = s.deps.Groups.RemoveGroup(ctx.Request().Context(), contextCourse(ctx).ID, id); err != nil {
		return errors.Wrap(err, "removing group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) listGroupMembers(ctx echo.Context) error {
	id, err := paramInt64(ctx, "grp")
	if err != nil {
		return err
	}
	mbrs, err := s.deps.Groups.Members(ctx.Request().Context(), contextCourse(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "listing group members")
	}
	if mbrs == nil {
		mbrs = []group.Member{}
	}
	return ctx.JSON(http.StatusOK, mbrs)
}

// Memberships

func (s *Server) myGroups(ctx echo.Context) error {
	crsID, viewer := contextCourse(ctx).ID, contextViewer(ctx)
	reqCtx := ctx.Request().Context()

	grps, err := s.deps.Groups.MyGroups(reqCtx, crsID, viewer.UserID)
	if err != nil {
		return errors.Wrap(err, "listing my groups")
	}
	if grps == nil {
		grps = []group.Group{}
	}
	missing, err := s.deps.Groups.NumMandatoryTypesIDontBelong(reqCtx, crsID, viewer.UserID)
	if err != nil {
		return errors.Wrap(err, "counting mandatory group types")
	}
	return ctx.JSON(http.StatusOK, MyGroupsResponse{Groups: grps, MissingMandatoryTypes: missing})
}

func (s *Server) changeMyGroups(ctx echo.Context) error {
	var data group.Selection
	if err := s.bind(ctx, &data); err != nil {
		return err
	}
	viewer := contextViewer(ctx)
	if viewer.Role == "" {
		return errHttpForbidden // admins not enrolled have no groups
	}
	ch, err := s.deps.Groups.ChangeMyGroups(ctx.Request().Context(), contextCourse(ctx).ID, viewer.UserID, viewer.IsStudent(), data.GroupIDs)
	if err != nil {
		return errors.Wrap(err, "changing my groups")
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (s *Server) changeUserGroups(ctx echo.Context) error {
	usrID, role, err := s.memberRole(ctx)
	if err != nil {
		return err
	}
	var data group.Selection
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	ch, err := s.deps.Groups.ChangeUserGroups(ctx.Request().Context(), contextCourse(ctx).ID, usrID, role == course.RoleStudent, data.GroupIDs)
	if err != nil {
		return errors.Wrap(err, "changing user groups")
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (s *Server) enrolUserInGroups(ctx echo.Context) error {
	usrID, _, err := s.memberRole(ctx)
	if err != nil {
		return err
	}
	var data group.Selection
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	ch, err := s.deps.Groups.EnrolUserInGroups(ctx.Request().Context(), contextCourse(ctx).ID, usrID, data.GroupIDs)
	if err != nil {
		return errors.Wrap(err, "enrolling user in groups")
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (s *Server) removeUserFromGroups(ctx echo.Context) error {
	usrID, _, err := s.memberRole(ctx)
	if err != nil {
		return err
	}
	var data group.Selection
	if err = s.bind(ctx, &data); err != nil {
		return err
	}
	n, err := s.deps.Groups.RemoveUserFromGroups(ctx.Request().Context(), contextCourse(ctx).ID, usrID, data.GroupIDs)
	if err != nil {
		return errors.Wrap(err, "removing user from groups")
	}
	return ctx.JSON(http.StatusOK, RemovedResponse{Removed: n})
}

type (
	MyGroupsResponse struct {
		Groups []group.Group `json:"groups"`
		// MissingMandatoryTypes counts the mandatory types where the user could still join a group.
		MissingMandatoryTypes int `json:"missing_mandatory_types"`
	}

	RemovedResponse struct {
		Removed int `json:"removed"`
	}
)
