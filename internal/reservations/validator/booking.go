package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"yoyaku/pkg/config"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("slot_date", validateSlotDate); err != nil {
		log.Fatal("Failed to register 'slot_date' validator",
			"error", err,
		)
	}

	if err := v.RegisterValidation("slot_time", validateSlotTime); err != nil {
		log.Fatal("Failed to register 'slot_time' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// validateSlotDate requires a real calendar date in YYYY-MM-DD form.
func validateSlotDate(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

// validateSlotTime requires HH:MM on a slot boundary.
func validateSlotTime(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return false
	}
	return t.Minute()%config.SlotGranularityMinutes == 0
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

// ValidateSlotKey checks a bare (date, time) pair, for slot status lookups
// that carry no booking document.
func (v *BookingValidator) ValidateSlotKey(key model.SlotKey) error {
	var errs ValidationErrors

	if _, err := time.Parse(dateLayout, key.Date); err != nil {
		errs = append(errs, ValidationError{
			Field:   "Date",
			Message: "Date must be a valid date in YYYY-MM-DD format",
		})
	}

	if t, err := time.Parse(timeLayout, key.Time); err != nil {
		errs = append(errs, ValidationError{
			Field:   "Time",
			Message: "Time must be a valid time in HH:MM format",
		})
	} else if t.Minute()%config.SlotGranularityMinutes != 0 {
		errs = append(errs, ValidationError{
			Field:   "Time",
			Message: fmt.Sprintf("Time must fall on a %d-minute boundary", config.SlotGranularityMinutes),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "slot_date":
			message = fmt.Sprintf("%s must be a valid date in YYYY-MM-DD format", err.Field())
		case "slot_time":
			message = fmt.Sprintf("%s must be a time in HH:MM format on a %d-minute boundary", err.Field(), config.SlotGranularityMinutes)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
