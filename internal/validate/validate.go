// Package validate runs the synchronous field checks of the task, contact and
// signup forms. Only the first failing rule of each field is reported.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
)

// Warning is an inline message next to one field; the client removes it
// after ClearAfterMs.
type Warning struct {
	Field        string `json:"field"`
	Message      string `json:"message"`
	ClearAfterMs int64  `json:"clearAfterMs"`
}

// Errors is the set of warnings of one submission.
type Errors []Warning

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, w := range e {
		parts[i] = w.Field + ": " + w.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return notify.ErrInline }

// For returns the warning for field, if any.
func (e Errors) For(field string) (Warning, bool) {
	for _, w := range e {
		if w.Field == field {
			return w, true
		}
	}
	return Warning{}, false
}

type TodoInput struct {
	Title    string `form:"title" validate:"required,max=120"`
	DueDate  string `form:"dueDate" validate:"required,datetime=2006-01-02"`
	Category string `form:"category" validate:"required,category"`
	Priority string `form:"priority" validate:"omitempty,oneof=low medium high"`
}

type ContactInput struct {
	Name  string `form:"name" validate:"required,personname"`
	Email string `form:"email" validate:"required,email"`
	Phone string `form:"phone" validate:"required,phone"`
}

type SignupInput struct {
	Name     string `form:"name" validate:"required,personname"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
	Confirm  string `form:"confirm" validate:"required,eqfield=Password"`
}

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()/-]{6,20}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*$`)
)

var messages = map[string]string{
	"required":   "This field is required",
	"datetime":   "Please use the format YYYY-MM-DD",
	"email":      "Please enter a valid email address",
	"phone":      "Please enter a valid phone number",
	"personname": "Please enter a valid name",
	"category":   "Please select a category",
	"eqfield":    "Passwords do not match",
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	v     *validator.Validate
	delay time.Duration
}

// New returns a Validator whose warnings clear after delay.
func New(delay time.Duration) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		for _, c := range domain.Categories {
			if c == fl.Field().String() {
				return true
			}
		}
		return false
	})
	return &Validator{v: v, delay: delay}
}

// ClearAfter is the delay attached to every warning.
func (v *Validator) ClearAfter() time.Duration { return v.delay }

func (v *Validator) Todo(in TodoInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.Category = strings.TrimSpace(in.Category)
	return v.check(in)
}

func (v *Validator) Contact(in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return v.check(in)
}

func (v *Validator) Signup(in SignupInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return v.check(in)
}

func (v *Validator) check(in any) error {
	err := v.v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Warning{
			Field:        fe.Field(),
			Message:      message(fe),
			ClearAfterMs: v.delay.Milliseconds(),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return "Please choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "Invalid value"
}
