// Package validation checks candidates and import rows before they reach the matcher.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank rejects whitespace-only strings, which required lets through
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(field.String()) != ""
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks value against its validate tags. Failures wrap models.ErrValidation.
func Validate[T any](value T) error {
	if err := validate.Struct(value); err != nil {
		return ValidationError(err)
	}
	return nil
}

// Candidate checks a candidate: first and last name are required and not blank, email is well-formed when present.
// Blank optional fields count as absent.
func Candidate(c models.CandidateInput) error {
	return Validate(c.Normalized())
}

// Row checks an import row
func Row(row models.ImportRow) error {
	if err := Candidate(row.Candidate); err != nil {
		return err
	}
	if row.JerseyNumber != nil && *row.JerseyNumber < 0 {
		return fmt.Errorf("%w: jersey_number must not be negative", models.ErrValidation)
	}
	return nil
}

// ValidationError renders validator failures as one models.ErrValidation error
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed rule '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(msgs, "; "))
}
