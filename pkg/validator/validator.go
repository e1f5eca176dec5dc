package validator

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"voltage-backend/pkg/utils"
)

var (
	validate   *validator.Validate
	initOnce   sync.Once
	ugcPolicy  = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()

	// Egyptian mobile numbers: 010, 011, 012 or 015 followed by eight digits.
	phonePattern = regexp.MustCompile(`^01[0125][0-9]{8}$`)
)

// Init registers the custom tags on a standalone validator and on gin's
// binding engine. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		validate = validator.New()
		registerCustomValidations(validate)

		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustomValidations(engine)
		}
	})
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("eg_phone", validatePhone)
	v.RegisterValidation("option_label", validateOptionLabel)
	v.RegisterValidation("no_html", validateNoHTML)
}

func Validate(s interface{}) error {
	Init()
	return validate.Struct(s)
}

// SanitizeHTML keeps safe formatting markup in long-form descriptions.
func SanitizeHTML(html string) string {
	return ugcPolicy.Sanitize(html)
}

// SanitizeString strips every tag from short plain-text fields.
func SanitizeString(s string) string {
	return textPolicy.Sanitize(s)
}

// ValidatePhone accepts numbers typed with Arabic-Indic digits or grouping
// separators; callers store utils.NormalizePhone of the input.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(utils.NormalizePhone(phone))
}

func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "password must be at least 8 characters long"
	}
	if strings.TrimSpace(password) == "" {
		return false, "password must not be blank"
	}
	return true, ""
}

func validatePhone(fl validator.FieldLevel) bool {
	return ValidatePhone(fl.Field().String())
}

func validateOptionLabel(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "a", "b", "c", "d":
		return true
	default:
		return false
	}
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}
