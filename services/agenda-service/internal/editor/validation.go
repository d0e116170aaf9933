package editor

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/slots"
)

type Code string

const (
	CodeMissingRequiredFields Code = "missing_required_fields"
	CodeMissingContactMethod  Code = "missing_contact_method"
	CodeUnknownContactMethod  Code = "unknown_contact_method"
	CodeInvalidTimeSlot       Code = "invalid_time_slot"
	CodeInvalidDate           Code = "invalid_date"
)

var messages = map[Code]string{
	CodeMissingRequiredFields: "Por favor, complete todos los campos obligatorios.",
	CodeMissingContactMethod:  "Por favor, seleccione al menos un método de contacto.",
	CodeUnknownContactMethod:  "Por favor, seleccione un método de contacto válido.",
	CodeInvalidTimeSlot:       "Por favor, seleccione un horario disponible.",
	CodeInvalidDate:           "Por favor, seleccione una fecha válida.",
}

// ValidationError is returned by Save when the form cannot be stored.
// The modal stays open and the agenda is left untouched.
type ValidationError struct {
	Code    Code
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code Code, fields []string) *ValidationError {
	return &ValidationError{Code: code, Message: messages[code], Fields: fields}
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// formInput is the trimmed form as seen by the validator.
type formInput struct {
	FirstName      string   `json:"firstName" validate:"required"`
	LastName       string   `json:"lastName" validate:"required"`
	Phone          string   `json:"phone" validate:"required"`
	Date           string   `json:"date" validate:"required,calendar_date"`
	Time           string   `json:"time" validate:"required,slot"`
	ContactMethods []string `json:"contactMethods" validate:"min=1,dive,contact_method"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return slots.IsValid(fl.Field().String())
	})
	_ = v.RegisterValidation("contact_method", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseContactMethod(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(model.DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// validateForm checks f in the order the product reports problems:
// missing fields first, then contact methods, then slot and date shape.
func validateForm(f Form) (Form, *ValidationError) {
	clean := Form{
		FirstName:      strings.TrimSpace(f.FirstName),
		LastName:       strings.TrimSpace(f.LastName),
		Phone:          strings.TrimSpace(f.Phone),
		Date:           strings.TrimSpace(f.Date),
		Time:           strings.TrimSpace(f.Time),
		ContactMethods: dedupe(f.ContactMethods),
	}

	err := validate.Struct(formInput{
		FirstName:      clean.FirstName,
		LastName:       clean.LastName,
		Phone:          clean.Phone,
		Date:           clean.Date,
		Time:           clean.Time,
		ContactMethods: model.ContactMethodStrings(clean.ContactMethods),
	})
	if err == nil {
		return clean, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return clean, newValidationError(CodeMissingRequiredFields, nil)
	}

	byCode := map[Code][]string{}
	for _, fe := range verrs {
		code := codeFor(fe.Tag())
		// contactMethods[1] and contactMethods[3] both report as contactMethods.
		field, _, _ := strings.Cut(fe.Field(), "[")
		if !slices.Contains(byCode[code], field) {
			byCode[code] = append(byCode[code], field)
		}
	}
	for _, code := range []Code{CodeMissingRequiredFields, CodeMissingContactMethod, CodeUnknownContactMethod, CodeInvalidTimeSlot, CodeInvalidDate} {
		if fields, ok := byCode[code]; ok {
			return clean, newValidationError(code, fields)
		}
	}
	return clean, newValidationError(CodeMissingRequiredFields, nil)
}

func codeFor(tag string) Code {
	switch tag {
	case "min":
		return CodeMissingContactMethod
	case "contact_method":
		return CodeUnknownContactMethod
	case "slot":
		return CodeInvalidTimeSlot
	case "calendar_date":
		return CodeInvalidDate
	default:
		return CodeMissingRequiredFields
	}
}

func dedupe(methods []model.ContactMethod) []model.ContactMethod {
	out := make([]model.ContactMethod, 0, len(methods))
	for _, m := range methods {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}
