package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Language tags such as "en", "pt-BR" or "zh-Hant".
var langCodePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)

// IsLanguageCode reports whether s looks like a language tag.
func IsLanguageCode(s string) bool { return langCodePattern.MatchString(s) }

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return IsLanguageCode(fl.Field().String())
	})
	return v
})

// jsonName reports fields under their wire name.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return toSnakeCase(f.Name)
	}
	return name
}

// Validate checks s against its `validate` tags. Every failing field is
// reported in the error's fields detail.
func Validate(s any) error {
	err := structValidator().Struct(s)
	var failed validator.ValidationErrors
	if !errors.As(err, &failed) {
		if err != nil {
			return invalid([]FieldError{{Field: "body", Message: err.Error()}})
		}
		return nil
	}
	fields := make([]FieldError, 0, len(failed))
	for _, fe := range failed {
		fields = append(fields, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return invalid(fields)
}

// fieldPath drops the root struct name: "Options.translate[2]" -> "translate[2]".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	unit := "characters"
	if k := fe.Kind(); k == reflect.Slice || k == reflect.Map {
		unit = "items"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " " + unit
	case "max":
		return "must have at most " + fe.Param() + " " + unit
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "langcode":
		return "must be a language code such as en or pt-BR"
	}
	return "is invalid"
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
