package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/attendance/internal/app/models"
)

// RegisterValidators adds the domain rules used in request binding tags:
// "timeslot" accepts one of the fixed class periods and "attendancestatus"
// accepts PRESENT, ABSENT or LATE.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerRules(v)
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		return models.TimeSlot(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("failed to register timeslot rule: %w", err)
	}
	if err := v.RegisterValidation("attendancestatus", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("failed to register attendancestatus rule: %w", err)
	}
	return nil
}
