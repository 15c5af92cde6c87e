package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/acanas/swad-core-sub004/core"
)

var (
	courseRoleTag  = "courserole"
	courseRoleText = "role must be one of student, non_editing_teacher or teacher"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseRoleTag, func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, courseRoleTag, courseRoleText)
}
