package echoapi

import (
	"net/http"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/group"
)

func TestErrorResponse(t *testing.T) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
		wantOK   bool
	}{
		{
			name:     "missing token",
			err:      middleware.ErrJWTMissing,
			wantCode: http.StatusUnauthorized,
			wantBody: errorBody{Error: "missing or malformed jwt"},
			wantOK:   true,
		},
		{
			name:     "wrapped http error",
			err:      echo.NewHTTPError(http.StatusBadRequest).SetInternal(errHttpForbidden),
			wantCode: http.StatusForbidden,
			wantBody: errorBody{Error: "permission denied"},
			wantOK:   true,
		},
		{
			name:     "field error",
			err:      core.NewFieldValidationError("weekday", "invalid weekday"),
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"weekday": "invalid weekday"},
			wantOK:   true,
		},
		{
			name:     "validation without fields",
			err:      core.NewValidationError(errors.New("nothing to change")),
			wantCode: http.StatusBadRequest,
			wantBody: errorBody{Error: "nothing to change"},
			wantOK:   true,
		},
		{
			name:     "group not found",
			err:      errors.Wrap(group.ErrNotFound, "getting group"),
			wantCode: http.StatusNotFound,
			wantBody: errorBody{Error: "group not found", Object: "group"},
			wantOK:   true,
		},
		{
			name:     "full group",
			err:      errors.Wrapf(group.ErrGroupFull, "joining group %q", "L1"),
			wantCode: http.StatusConflict,
			wantBody: errorBody{Error: "group is full"},
			wantOK:   true,
		},
		{
			name:     "permission",
			err:      core.ErrPermissionDenied,
			wantCode: http.StatusForbidden,
			wantBody: errorBody{Error: "permission denied"},
			wantOK:   true,
		},
		{
			name:     "server error",
			err:      errors.New("connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: errorBody{Error: "Internal Server Error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, ok := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
