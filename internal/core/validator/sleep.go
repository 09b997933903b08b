package validator

import (
	"fmt"
	"strings"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// ValidateSleep checks the structural and semantic invariants of a sleep
// record, including its pattern data set against the declared sleep type.
func ValidateSleep(sleep *domain.Sleep) error {
	var fields []string

	if sleep.StartTime == nil {
		fields = append(fields, "start_time")
	}
	if sleep.EndTime == nil {
		fields = append(fields, "end_time")
	}
	if sleep.Duration == nil {
		fields = append(fields, "duration")
	} else if *sleep.Duration < 0 {
		return domain.NewValidationError("Duration field is invalid...",
			"Sleep validation failed: The value provided has a negative value!")
	} else if err := validateRange("Sleep", sleep.StartTime, sleep.EndTime, sleep.Duration); err != nil {
		return err
	}

	if sleep.ChildID == "" {
		fields = append(fields, "child_id")
	} else if err := ValidateObjectID(sleep.ChildID, "child_id"); err != nil {
		return err
	}

	switch sleep.Type {
	case domain.SleepTypeClassic, domain.SleepTypeStages:
	case "":
		fields = append(fields, "type")
	default:
		return domain.NewValidationError(
			fmt.Sprintf("The sleep type provided \"%s\" is not supported...", sleep.Type),
			"The allowed Sleep Pattern types are: classic, stages.")
	}

	if sleep.Pattern == nil {
		fields = append(fields, "pattern")
	} else if sleep.Type != "" {
		if err := ValidateSleepPatternDataSet(sleep.Pattern.DataSet, sleep.Type); err != nil {
			return err
		}
	}

	if len(fields) > 0 {
		return domain.NewRequiredFieldsError("Sleep", fields)
	}
	return nil
}

// ValidateSleepPatternDataSet checks a sleep pattern data set against the
// sleep type of its parent record: the set must be non-empty and every
// element's name must belong to the enum associated with that type.
func ValidateSleepPatternDataSet(dataSet []domain.SleepPatternDataSet, sleepType domain.SleepType) error {
	if len(dataSet) == 0 {
		return domain.NewValidationError("Dataset are not in a format that is supported!",
			"The data_set collection must not be empty!")
	}

	var fields []string
	for _, data := range dataSet {
		if data.StartTime == nil {
			fields = append(fields, "data_set start_time")
		}
		if data.Name == "" {
			fields = append(fields, "data_set name")
		} else if sleepType == domain.SleepTypeClassic && !containsName(domain.PhasesPatternNames(), data.Name) {
			return domain.NewValidationError(
				fmt.Sprintf("The sleep pattern name provided \"%s\" is not supported...", data.Name),
				"The names of the allowed patterns are: "+strings.Join(domain.PhasesPatternNames(), ", "))
		} else if sleepType == domain.SleepTypeStages && !containsName(domain.StagesPatternNames(), data.Name) {
			return domain.NewValidationError(
				fmt.Sprintf("The sleep pattern name provided \"%s\" is not supported...", data.Name),
				"The names of the allowed patterns are: "+strings.Join(domain.StagesPatternNames(), ", "))
		}
		if data.Duration == nil {
			fields = append(fields, "data_set duration")
		} else if *data.Duration < 0 {
			return domain.NewValidationError("Some (or several) duration field of sleep pattern is invalid...",
				"Sleep Pattern dataset validation failed: The value provided has a negative value!")
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{
			Message:     "Dataset are not in a format that is supported!",
			Description: "Validation of the sleep pattern dataset failed: " + strings.Join(fields, ", ") + " is required!",
			Fields:      fields,
		}
	}
	return nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
