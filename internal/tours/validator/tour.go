package validator

import (
	"errors"
	"fmt"
	"strings"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type TourValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTourValidator(log *logger.Logger) *TourValidator {
	log.Info("Tour validator initialized successfully")
	return &TourValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

func (v *TourValidator) Validate(tour *model.Tour) error {
	if err := v.validate.Struct(tour); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			if err.Kind().String() == "string" {
				message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
			} else {
				message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
			}
		case "max":
			if err.Kind().String() == "string" {
				message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
			} else {
				message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
			}
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ID", err.Field())
		}

		out = append(out, ValidationError{Field: err.Field(), Message: message})
	}
	return out
}
