package employee

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dorobek/core"
)

var (
	orcidTag   = "orcid"
	orcidText  = "enter a valid ORCID (e.g. 0000-0002-1825-009X)"
	orcidRegex = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}(\d|X)$`)
)

// InitValidators registers the employee validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(orcidTag, orcidValidation)
	core.RegisterCustomTranslation(validate, translator, orcidTag, orcidText)
}

func orcidValidation(fl validator.FieldLevel) bool {
	return orcidRegex.MatchString(fl.Field().String())
}
