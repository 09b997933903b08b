package validator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/validator"
)

func validWeight() *domain.Weight {
	return &domain.Weight{
		ChildID:   validChildID,
		Timestamp: timePtr(time.Date(2019, 6, 2, 11, 0, 0, 0, time.UTC)),
		Value:     floatPtr(50.2),
		Unit:      "kg",
	}
}

func TestValidateWeight_Valid(t *testing.T) {
	assert.NoError(t, validator.ValidateWeight(validWeight()))
}

func TestValidateWeight_ValidWithBodyFat(t *testing.T) {
	weight := validWeight()
	weight.BodyFat = floatPtr(21.2)
	assert.NoError(t, validator.ValidateWeight(weight))
}

func TestValidateWeight_CollectsAllMissingFields(t *testing.T) {
	err := validator.ValidateWeight(&domain.Weight{})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"timestamp", "value", "unit", "child_id"}, vErr.Fields)
}

func TestValidateWeight_NonPositiveValue(t *testing.T) {
	for _, value := range []float64{0, -50.2} {
		weight := validWeight()
		weight.Value = floatPtr(value)

		err := validator.ValidateWeight(weight)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Description, "not a positive number")
	}
}

func TestValidateWeight_NegativeBodyFat(t *testing.T) {
	weight := validWeight()
	weight.BodyFat = floatPtr(-1)

	err := validator.ValidateWeight(weight)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Body_fat field is invalid...", vErr.Message)
}

func TestValidateWeight_InvalidBodyFatID(t *testing.T) {
	weight := validWeight()
	weight.BodyFatID = "123"

	err := validator.ValidateWeight(weight)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Parameter {body_fat_id} is not in valid format!", vErr.Message)
}

func TestValidateBodyFat_Valid(t *testing.T) {
	bodyFat := &domain.BodyFat{
		ChildID:   validChildID,
		Timestamp: timePtr(time.Now().UTC()),
		Value:     floatPtr(21.2),
		Unit:      "%",
	}
	assert.NoError(t, validator.ValidateBodyFat(bodyFat))
}

func TestValidateBodyFat_CollectsAllMissingFields(t *testing.T) {
	err := validator.ValidateBodyFat(&domain.BodyFat{})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"timestamp", "value", "unit", "child_id"}, vErr.Fields)
}
