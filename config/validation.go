package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

// nodeNamePattern accepts names valid for every node kind (links forbid dots)
var nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("nodename", func(fl validator.FieldLevel) bool {
		return nodeNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Validate validates the configuration using struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
