package domain

import "time"

// ActivityLevel represents time spent on one intensity level of a physical
// activity (sedentary, lightly, fairly or very active).
type ActivityLevel struct {
	Name     string `json:"name"`
	Duration int64  `json:"duration"` // Milliseconds spent on this level
}

// Activity level names.
const (
	LevelSedentary = "sedentary"
	LevelLightly   = "lightly"
	LevelFairly    = "fairly"
	LevelVery      = "very"
)

// HeartRateZone represents one heart rate zone reached during an activity.
type HeartRateZone struct {
	Min      int   `json:"min"`
	Max      int   `json:"max"`
	Duration int64 `json:"duration"`
}

// HeartRate represents the heart rate summary of a physical activity.
type HeartRate struct {
	Average     *int           `json:"average,omitempty"`
	OutOfRange  *HeartRateZone `json:"out_of_range_zone,omitempty"`
	FatBurn     *HeartRateZone `json:"fat_burn_zone,omitempty"`
	Cardio      *HeartRateZone `json:"cardio_zone,omitempty"`
	Peak        *HeartRateZone `json:"peak_zone,omitempty"`
}

// PhysicalActivity represents a ranged physical activity record of a child.
// Optional fields are pointers so that absent values in an event payload stay
// absent through mapping and persistence.
type PhysicalActivity struct {
	ID        string          `json:"id,omitempty"`
	ChildID   string          `json:"child_id,omitempty"`
	StartTime *time.Time      `json:"start_time,omitempty"` // UTC
	EndTime   *time.Time      `json:"end_time,omitempty"`   // UTC
	Duration  *int64          `json:"duration,omitempty"`   // Milliseconds, must equal end_time - start_time
	Name      string          `json:"name,omitempty"`
	Calories  *float64        `json:"calories,omitempty"`
	Steps     *int            `json:"steps,omitempty"`
	Distance  *float64        `json:"distance,omitempty"`
	Levels    []ActivityLevel `json:"levels,omitempty"`
	HeartRate *HeartRate      `json:"heart_rate,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"` // Server-assigned, never client-settable
}
