package domain

import "time"

// SleepType distinguishes the two sleep tracking models: classic
// phase-based tracking and the newer stage-based tracking.
type SleepType string

const (
	SleepTypeClassic SleepType = "classic"
	SleepTypeStages  SleepType = "stages"
)

// Phase names valid for a classic sleep pattern.
const (
	PhaseAsleep   = "asleep"
	PhaseRestless = "restless"
	PhaseAwake    = "awake"
)

// Stage names valid for a stages sleep pattern.
const (
	StageDeep  = "deep"
	StageLight = "light"
	StageRem   = "rem"
	StageAwake = "awake"
)

// PhasesPatternNames returns the pattern names allowed for classic sleep.
func PhasesPatternNames() []string {
	return []string{PhaseAsleep, PhaseRestless, PhaseAwake}
}

// StagesPatternNames returns the pattern names allowed for stages sleep.
func StagesPatternNames() []string {
	return []string{StageDeep, StageLight, StageRem, StageAwake}
}

// SleepPatternDataSet is one element of a sleep pattern: the time a phase or
// stage started, its name and how long it lasted. Which names are valid
// depends on the type declared by the parent Sleep.
type SleepPatternDataSet struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	Name      string     `json:"name,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // Milliseconds
}

// SleepPattern is the sequence of phases or stages of one sleep record.
// It is value-owned by the Sleep and never persisted independently.
type SleepPattern struct {
	DataSet []SleepPatternDataSet `json:"data_set,omitempty"`
}

// Sleep represents a sleep record of a child.
type Sleep struct {
	ID        string        `json:"id,omitempty"`
	ChildID   string        `json:"child_id,omitempty"`
	StartTime *time.Time    `json:"start_time,omitempty"` // UTC
	EndTime   *time.Time    `json:"end_time,omitempty"`   // UTC
	Duration  *int64        `json:"duration,omitempty"`   // Milliseconds, must equal end_time - start_time
	Type      SleepType     `json:"type,omitempty"`
	Pattern   *SleepPattern `json:"pattern,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}
