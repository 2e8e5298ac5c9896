package validation

import (
	"errors"
	"reflect"
	"strings"

	"cookbook/internal/models"

	"github.com/go-playground/validator/v10"
)

// Global validator instance for reuse
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields under their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	must(v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}))
	must(v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("emaildomain", func(fl validator.FieldLevel) bool {
		return dottedDomain(fl.Field().String())
	}))

	return v
}

// dottedDomain reports whether the part after the last @ has a dot and does not end with one.
func dottedDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s against its `validate` tags and returns one FieldError per failed field.
func Struct(s any) []models.FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}

	fields := make([]models.FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		fields = append(fields, models.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "emaildomain":
		return "invalid email domain"
	case "strongpassword":
		if err := ValidatePassword(fe.Value().(string)); err != nil {
			return err.Error()
		}
		return "password does not satisfy policy"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

// Check returns a validation AppError when s fails validation.
func Check(s any) *models.AppError {
	if fields := Struct(s); len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}
