package validator

import (
	"fmt"
	"time"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidateLog checks the structural invariants of a daily activity log.
func ValidateLog(logRecord *domain.Log) error {
	var fields []string

	if logRecord.Date == "" {
		fields = append(fields, "date")
	} else if _, err := time.Parse(domain.LogDateLayout, logRecord.Date); err != nil {
		return domain.NewValidationError(
			fmt.Sprintf("Date parameter: %s, is not in valid ISO 8601 format.", logRecord.Date),
			"Date must be in the format: yyyy-MM-dd")
	}

	if logRecord.Value == nil {
		fields = append(fields, "value")
	} else if *logRecord.Value < 0 {
		return domain.NewValidationError("Value field is invalid...",
			"Log validation failed: The value provided has a negative value!")
	}

	if logRecord.Type == "" {
		fields = append(fields, "type")
	} else if !domain.IsValidLogType(logRecord.Type) {
		return domain.NewValidationError(
			fmt.Sprintf("The log type provided \"%s\" is not supported...", logRecord.Type),
			"The names of the allowed types are: steps, calories, active_minutes, lightly_active_minutes, sedentary_minutes.")
	}

	if logRecord.ChildID == "" {
		fields = append(fields, "child_id")
	} else if err := ValidateObjectID(logRecord.ChildID, "child_id"); err != nil {
		return err
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Log", fields)
	}
	return nil
}
