package domain

import "time"

// Weight represents a body weight measurement of a child at a point in time.
// BodyFatID optionally references a BodyFat record by id; the reference does
// not imply lifecycle ownership, deleting either record leaves the other.
type Weight struct {
	ID        string     `json:"id,omitempty"`
	ChildID   string     `json:"child_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"` // UTC
	Value     *float64   `json:"value,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	BodyFat   *float64   `json:"body_fat,omitempty"`
	BodyFatID string     `json:"body_fat_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// BodyFat represents a body fat percentage measurement of a child.
type BodyFat struct {
	ID        string     `json:"id,omitempty"`
	ChildID   string     `json:"child_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"` // UTC
	Value     *float64   `json:"value,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
