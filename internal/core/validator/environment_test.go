package validator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/validator"
)

const validInstitutionID = "5a62be07d6f33400146c9b61"

func validEnvironment() *domain.Environment {
	return &domain.Environment{
		InstitutionID: validInstitutionID,
		Timestamp:     timePtr(time.Date(2019, 3, 11, 14, 0, 0, 0, time.UTC)),
		Location:      &domain.Location{Local: "indoor", Room: "room 01"},
		Measurements: []domain.EnvironmentMeasurement{
			{Type: "temperature", Value: floatPtr(26.2), Unit: "°C"},
			{Type: "humidity", Value: floatPtr(45.6), Unit: "%"},
		},
	}
}

func TestValidateEnvironment_Valid(t *testing.T) {
	assert.NoError(t, validator.ValidateEnvironment(validEnvironment()))
}

func TestValidateEnvironment_CollectsAllMissingFields(t *testing.T) {
	err := validator.ValidateEnvironment(&domain.Environment{})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t,
		[]string{"timestamp", "institution_id", "location", "measurements"},
		vErr.Fields)
}

func TestValidateEnvironment_MissingLocationParts(t *testing.T) {
	env := validEnvironment()
	env.Location = &domain.Location{}

	err := validator.ValidateEnvironment(env)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"location local", "location room"}, vErr.Fields)
}

func TestValidateEnvironment_IncompleteMeasurement(t *testing.T) {
	env := validEnvironment()
	env.Measurements = []domain.EnvironmentMeasurement{{Type: "temperature"}}

	err := validator.ValidateEnvironment(env)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"measurement value", "measurement unit"}, vErr.Fields)
}

func TestValidateEnvironment_InvalidInstitutionID(t *testing.T) {
	env := validEnvironment()
	env.InstitutionID = "xyz"

	err := validator.ValidateEnvironment(env)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Parameter {institution_id} is not in valid format!", vErr.Message)
}
