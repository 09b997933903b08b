package validator

import (
	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidateWeight checks the structural invariants of a weight measurement.
func ValidateWeight(weight *domain.Weight) error {
	var fields []string

	if weight.Timestamp == nil {
		fields = append(fields, "timestamp")
	}
	if weight.Value == nil {
		fields = append(fields, "value")
	} else if *weight.Value <= 0 {
		return domain.NewValidationError("Value field is invalid...",
			"Weight validation failed: The value provided is not a positive number!")
	}
	if weight.Unit == "" {
		fields = append(fields, "unit")
	}
	if weight.ChildID == "" {
		fields = append(fields, "child_id")
	} else if err := ValidateObjectID(weight.ChildID, "child_id"); err != nil {
		return err
	}
	if weight.BodyFat != nil && *weight.BodyFat < 0 {
		return domain.NewValidationError("Body_fat field is invalid...",
			"Weight validation failed: The value provided has a negative value!")
	}
	if weight.BodyFatID != "" {
		if err := ValidateObjectID(weight.BodyFatID, "body_fat_id"); err != nil {
			return err
		}
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Weight", fields)
	}
	return nil
}

// ValidateBodyFat checks the structural invariants of a body fat measurement.
func ValidateBodyFat(bodyFat *domain.BodyFat) error {
	var fields []string

	if bodyFat.Timestamp == nil {
		fields = append(fields, "timestamp")
	}
	if bodyFat.Value == nil {
		fields = append(fields, "value")
	} else if *bodyFat.Value <= 0 {
		return domain.NewValidationError("Value field is invalid...",
			"Body Fat validation failed: The value provided is not a positive number!")
	}
	if bodyFat.Unit == "" {
		fields = append(fields, "unit")
	}
	if bodyFat.ChildID == "" {
		fields = append(fields, "child_id")
	} else if err := ValidateObjectID(bodyFat.ChildID, "child_id"); err != nil {
		return err
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Body Fat", fields)
	}
	return nil
}
