package account

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	roleEmailTag  = "roleemail"
	roleEmailText = "please use a valid email format: '" + EmailFormat + "'"
)

// InitValidators registers the account validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleEmailTag, roleEmailValidation)
	core.RegisterCustomTranslation(validate, translator, roleEmailTag, roleEmailText)
}

// roleEmailValidation checks that an email carries a resolvable role token.
func roleEmailValidation(fl validator.FieldLevel) bool {
	_, ok := RoleFromEmail(fl.Field().String())
	return ok
}
