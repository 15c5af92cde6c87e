package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/user"
	"github.com/acanas/swad-core-sub004/testutil"
)

func newValidator() *validator.Validate {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv()
	validate := newValidator()
	existing := testutil.CreateUser(t, env.UserRepo, "Ana", "ana", "ana@swad.test", "Pwd12345!", nil, true)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
	}{
		{name: "valid", nu: user.NewUser{Name: "Berto", Username: "Berto_1", Email: "B@swad.test", Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}},
		{name: "no name", nu: user.NewUser{Username: "berto", Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}, wantField: "name"},
		{name: "short username", nu: user.NewUser{Name: "B", Username: "bb", Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}, wantField: "username"},
		{name: "bad email", nu: user.NewUser{Name: "B", Email: "nope", Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}, wantField: "email"},
		{name: "confirm mismatch", nu: user.NewUser{Name: "B", Password: "x1Y2z3W4!", PasswordConfirm: "other"}, wantField: "password_confirm"},
		{name: "taken username", nu: user.NewUser{Name: "B", Username: existing.Username, Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}, wantField: "username"},
		{name: "taken email", nu: user.NewUser{Name: "B", Email: "ANA@swad.test", Password: "x1Y2z3W4!", PasswordConfirm: "x1Y2z3W4!"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), validate, env.Users)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := map[string]bool{}
			switch vErr := errors.Cause(err).(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					fields[fe.Field()] = true
				}
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					fields[fe.Field] = true
				}
			}
			assert.True(t, fields[tt.wantField], "%v not in %v", tt.wantField, fields)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	active := testutil.CreateUser(t, env.UserRepo, "Ana", "ana", "ana@swad.test", "Pwd12345!", nil, true)
	testutil.CreateUser(t, env.UserRepo, "Off", "off", "off@swad.test", "Pwd12345!", nil, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "username", uname: "ana", pwd: "Pwd12345!"},
		{name: "email any case", uname: " ANA@swad.test ", pwd: "Pwd12345!"},
		{name: "wrong password", uname: "ana", pwd: "pwd12345!", wantErr: user.ErrInvalidLogin},
		{name: "unknown user", uname: "nobody", pwd: "Pwd12345!", wantErr: user.ErrInvalidLogin},
		{name: "inactive", uname: "off", pwd: "Pwd12345!", wantErr: user.ErrInactive},
		{name: "inactive wrong password", uname: "off", pwd: "x", wantErr: user.ErrInvalidLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := env.Users.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestService_RequestNewPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	testutil.CreateUser(t, env.UserRepo, "Ana", "ana", "ana@swad.test", "Pwd12345!", nil, true)

	assert.Equal(t, user.ErrNotFound, errors.Cause(env.Users.RequestNewPassword(ctx, "nobody")))
	assert.Empty(t, env.Mail.Sent())

	require.NoError(t, env.Users.RequestNewPassword(ctx, "ana@swad.test"))
	sent := env.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@swad.test", sent[0].To[0].Address)
	newPwd := sent[0].TemplateData.(map[string]string)["Password"]
	require.NotEmpty(t, newPwd)

	// the current password still works until the new one is used
	_, err := env.Users.Authenticate(ctx, "ana", "Pwd12345!")
	require.NoError(t, err)

	require.NoError(t, env.Users.RequestNewPassword(ctx, "ana"))
	newPwd = env.Mail.Sent()[1].TemplateData.(map[string]string)["Password"]

	_, err = env.Users.Authenticate(ctx, "ana", newPwd)
	require.NoError(t, err)
	_, err = env.Users.Authenticate(ctx, "ana", "Pwd12345!")
	assert.Equal(t, user.ErrInvalidLogin, errors.Cause(err))
}

func TestService_UpdateAndDelete(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UserRepo, "Ana", "ana", "ana@swad.test", "Pwd12345!", nil, true)

	inactive := false
	updated, err := env.Users.Update(ctx, usr, user.UpdateUser{
		Name: "Ana María", Username: "ana", Email: "ana@swad.test",
		IsActive: &inactive, Roles: []string{user.RoleTeacher}, Password: "N3wPass!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.False(t, updated.Active())
	assert.True(t, updated.IsTeacher())
	assert.NoError(t, updated.CheckPassword("N3wPass!"))

	require.NoError(t, env.Users.Delete(ctx, usr.ID))
	_, err = env.Users.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
