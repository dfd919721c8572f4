package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	loadTypeValidRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9 _-]*$`)

	earthingSystems = map[string]struct{}{
		"TN-S":   {},
		"TN-C-S": {},
		"TT":     {},
	}
)

func loadTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return loadTypeValidRegex.MatchString(strings.TrimSpace(val))
}

func phasesValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(val)) {
	case "single", "three":
		return true
	default:
		return false
	}
}

func earthingValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	_, found := earthingSystems[strings.ToUpper(strings.TrimSpace(val))]
	return found
}
