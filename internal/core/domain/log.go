package domain

import "time"

// LogType identifies which daily total a Log record tracks.
type LogType string

const (
	LogTypeSteps                LogType = "steps"
	LogTypeCalories             LogType = "calories"
	LogTypeActiveMinutes        LogType = "active_minutes"
	LogTypeLightlyActiveMinutes LogType = "lightly_active_minutes"
	LogTypeSedentaryMinutes     LogType = "sedentary_minutes"
)

// ValidLogTypes returns all recognized log types.
func ValidLogTypes() []LogType {
	return []LogType{
		LogTypeSteps,
		LogTypeCalories,
		LogTypeActiveMinutes,
		LogTypeLightlyActiveMinutes,
		LogTypeSedentaryMinutes,
	}
}

// IsValidLogType checks whether t is a recognized log type.
func IsValidLogType(t LogType) bool {
	for _, v := range ValidLogTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// LogDateLayout is the calendar date format carried by Log records.
const LogDateLayout = "2006-01-02"

// Log represents one daily activity total of a child (e.g. steps on a day).
// Re-syncing the same child, type and date overwrites the value.
type Log struct {
	ID        string     `json:"id,omitempty"`
	ChildID   string     `json:"child_id,omitempty"`
	Type      LogType    `json:"type,omitempty"`
	Date      string     `json:"date,omitempty"` // YYYY-MM-DD
	Value     *int       `json:"value,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
