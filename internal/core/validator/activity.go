package validator

import (
	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidatePhysicalActivity checks the structural and semantic invariants of a
// physical activity record coming from a sync event.
func ValidatePhysicalActivity(activity *domain.PhysicalActivity) error {
	var fields []string

	if activity.StartTime == nil {
		fields = append(fields, "start_time")
	}
	if activity.EndTime == nil {
		fields = append(fields, "end_time")
	}
	if activity.Duration == nil {
		fields = append(fields, "duration")
	} else if *activity.Duration < 0 {
		return domain.NewValidationError("Duration field is invalid...",
			"Physical Activity validation failed: The value provided has a negative value!")
	} else if err := validateRange("Physical Activity", activity.StartTime, activity.EndTime, activity.Duration); err != nil {
		return err
	}

	if activity.ChildID == "" {
		fields = append(fields, "child_id")
	} else if err := ValidateObjectID(activity.ChildID, "child_id"); err != nil {
		return err
	}

	if activity.Name == "" {
		fields = append(fields, "name")
	}
	if activity.Calories != nil && *activity.Calories < 0 {
		return domain.NewValidationError("Calories field is invalid...",
			"Physical Activity validation failed: The value provided has a negative value!")
	}
	if activity.Steps != nil && *activity.Steps < 0 {
		return domain.NewValidationError("Steps field is invalid...",
			"Physical Activity validation failed: The value provided has a negative value!")
	}
	for _, level := range activity.Levels {
		if level.Duration < 0 {
			return domain.NewValidationError("Levels field is invalid...",
				"Physical Activity validation failed: The value provided has a negative value!")
		}
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Physical Activity", fields)
	}
	return nil
}
