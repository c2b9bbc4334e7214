package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	allocationserrors "lanesched/internal/allocations/errors"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
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

type AllocationValidator struct {
	validate     *validator.Validate
	maxBatchSize int
	logger       *logger.Logger
}

func NewAllocationValidator(maxBatchSize int, log *logger.Logger) *AllocationValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("group_id", validateGroupID); err != nil {
		log.Fatal("Failed to register 'group_id' validator", "error", err)
	}

	return &AllocationValidator{
		validate:     v,
		maxBatchSize: maxBatchSize,
		logger:       log,
	}
}

// validateGroupID accepts printable identifiers without surrounding
// whitespace. Blank values are left to the required tag.
func validateGroupID(fl validator.FieldLevel) bool {
	group := fl.Field().String()
	if group == "" {
		return true
	}
	if strings.TrimSpace(group) != group {
		return false
	}
	for _, r := range group {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ValidateBatch checks the envelope only. Individual reservations are checked
// with ValidateReservation so one bad row does not reject the whole batch.
func (v *AllocationValidator) ValidateBatch(req *model.AllocationRequest) error {
	if req == nil || len(req.Reservations) == 0 {
		return allocationserrors.ErrEmptyBatch
	}
	if v.maxBatchSize > 0 {
		if err := v.validate.Var(req.Reservations, fmt.Sprintf("max=%d", v.maxBatchSize)); err != nil {
			return fmt.Errorf("%w: %d reservations, limit is %d",
				allocationserrors.ErrBatchTooLarge, len(req.Reservations), v.maxBatchSize)
		}
	}
	return nil
}

func (v *AllocationValidator) ValidateReservation(r *model.Reservation) error {
	if err := v.validate.Struct(r); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AllocationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := err.Field()
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			if err.Kind().String() == "string" {
				message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
			} else {
				message = fmt.Sprintf("%s must be at most %s", field, err.Param())
			}
		case "group_id":
			message = "group must not contain control characters or surrounding whitespace"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}
