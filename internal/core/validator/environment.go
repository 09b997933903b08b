package validator

import (
	"strings"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidateEnvironment checks the structural invariants of an environment
// reading.
func ValidateEnvironment(env *domain.Environment) error {
	var fields []string

	if env.Timestamp == nil {
		fields = append(fields, "timestamp")
	}
	if env.InstitutionID == "" {
		fields = append(fields, "institution_id")
	} else if err := ValidateObjectID(env.InstitutionID, "institution_id"); err != nil {
		return err
	}

	if env.Location == nil {
		fields = append(fields, "location")
	} else {
		if env.Location.Local == "" {
			fields = append(fields, "location local")
		}
		if env.Location.Room == "" {
			fields = append(fields, "location room")
		}
	}

	if len(env.Measurements) == 0 {
		fields = append(fields, "measurements")
	} else {
		for _, m := range env.Measurements {
			var missing []string
			if m.Type == "" {
				missing = append(missing, "measurement type")
			}
			if m.Value == nil {
				missing = append(missing, "measurement value")
			}
			if m.Unit == "" {
				missing = append(missing, "measurement unit")
			}
			if len(missing) > 0 {
				return &domain.ValidationError{
					Message:     "Measurement are not in a format that is supported!",
					Description: "Validation of environment measurements failed: " + strings.Join(missing, ", ") + " is required!",
					Fields:      missing,
				}
			}
		}
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Environment", fields)
	}
	return nil
}
