package domain

import "time"

// Location describes where an environment reading was taken inside an
// institution.
type Location struct {
	Local     string `json:"local,omitempty"`
	Room      string `json:"room,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// EnvironmentMeasurement is one sensor reading of an environment record,
// e.g. temperature or humidity.
type EnvironmentMeasurement struct {
	Type  string   `json:"type,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Environment represents an ambient reading (temperature, humidity) captured
// in an institution room at a point in time.
type Environment struct {
	ID            string                   `json:"id,omitempty"`
	InstitutionID string                   `json:"institution_id,omitempty"`
	Location      *Location                `json:"location,omitempty"`
	Measurements  []EnvironmentMeasurement `json:"measurements,omitempty"`
	Climatized    *bool                    `json:"climatized,omitempty"`
	Timestamp     *time.Time               `json:"timestamp,omitempty"` // UTC
	CreatedAt     *time.Time               `json:"created_at,omitempty"`
}
