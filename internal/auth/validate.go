// ABOUTME: Signup input validation using go-playground/validator
// ABOUTME: Maps field rule failures to user-correctable ValidationErrors

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError describes bad input the user can correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type signupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,contains=@"`
	Password string `validate:"min=6"`
}

var fieldMessages = map[string]*ValidationError{
	"Name":     {Field: "name", Message: "name is required"},
	"Email":    {Field: "email", Message: "invalid email address"},
	"Password": {Field: "password", Message: "password must be at least 6 characters"},
}

var validate = validator.New()

// validateSignup checks the input after trimming surrounding whitespace from
// name and email. Only the first failing field is reported.
func validateSignup(name, email, password string) error {
	in := signupInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if ve, ok := fieldMessages[fieldErrs[0].StructField()]; ok {
			return &ValidationError{Field: ve.Field, Message: ve.Message}
		}
	}
	return fmt.Errorf("validating signup: %w", err)
}
