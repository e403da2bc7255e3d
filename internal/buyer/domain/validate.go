package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PhoneDigits is the length of a national Mexican phone number.
const PhoneDigits = 10

// FieldError describes one rejected form field.
type FieldError struct {
	Field string
	Code  string
}

// InvalidFormError lists every rejected field of a buyer form.
type InvalidFormError struct {
	Fields []FieldError
}

func (e *InvalidFormError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid_buyer_form"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Code)
	}
	return "invalid_buyer_form: " + strings.Join(parts, ",")
}

func (e *InvalidFormError) Is(target error) bool {
	return target == ErrInvalidForm
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("mxphone", func(fl validator.FieldLevel) bool {
			return len(DigitsOnly(fl.Field().String())) == PhoneDigits
		})
		validate = v
	})
	return validate
}

// Validate checks a normalized form. requireTerms enforces the terms checkbox.
func (f Form) Validate(requireTerms bool) error {
	var fields []FieldError
	if requireTerms && !f.AcceptedTerms {
		fields = append(fields, FieldError{Field: "accepted_terms", Code: "terms_not_accepted"})
	}

	if err := formValidator().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Code: codeFor(fe)})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &InvalidFormError{Fields: fields}
}

func codeFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "mxphone":
		return "invalid_phone"
	default:
		return "invalid"
	}
}
