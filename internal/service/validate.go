package service

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		var letter, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsLetter(r):
				letter = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return letter && digit
	})
	return v
}

// validationError turns the first failed rule into a bad input error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return badInput("%s is required.", fe.Field())
	case "email":
		return badInput("%s must be a valid email address.", fe.Field())
	case "min":
		return badInput("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return badInput("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "alphanum":
		return badInput("%s may only contain letters and digits.", fe.Field())
	case "password":
		return badInput("%s must contain a letter and a digit.", fe.Field())
	}

	return badInput("%s is invalid.", fe.Field())
}
