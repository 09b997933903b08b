// Package validator contains the pure per-entity validation rules applied at
// the ingestion boundary. Validators never mutate their input and never
// perform I/O; each entity kind has a single entry point that collects every
// missing required field into one ValidationError before reporting.
package validator

import (
	"fmt"
	"time"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidateObjectID checks that id is a well-formed 24-lowercase-hex id.
func ValidateObjectID(id, paramName string) error {
	if !domain.IsValidObjectID(id) {
		return domain.NewValidationError(
			fmt.Sprintf("Parameter {%s} is not in valid format!", paramName),
			"A 24-byte hex ID similar to this: 507f191e810c19729de860ea, is expected.")
	}
	return nil
}

// validateRange checks the cross-field temporal invariants of a ranged
// record: end_time must not precede start_time and duration must equal the
// distance between them.
func validateRange(kind string, start, end *time.Time, duration *int64) error {
	if start == nil || end == nil || duration == nil {
		return nil
	}
	interval := end.Sub(*start).Milliseconds()
	if interval < 0 {
		return domain.NewValidationError("Date field is invalid...",
			"Date validation failed: The end_time parameter can not contain an older date than that the start_time parameter")
	}
	if *duration != interval {
		return domain.NewValidationError("Duration field is invalid...",
			fmt.Sprintf("Duration validation failed: %s duration value does not match values passed in start_time and end_time parameters", kind))
	}
	return nil
}
