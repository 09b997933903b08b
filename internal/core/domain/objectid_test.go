package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

func TestNewObjectID_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := domain.NewObjectID()
		assert.True(t, domain.IsValidObjectID(id), "generated id %q is not well formed", id)
		assert.False(t, seen[id], "generated id %q repeated", id)
		seen[id] = true
	}
}

func TestIsValidObjectID(t *testing.T) {
	assert.True(t, domain.IsValidObjectID("507f191e810c19729de860ea"))
	assert.False(t, domain.IsValidObjectID("507F191E810C19729DE860EA"), "uppercase hex is rejected")
	assert.False(t, domain.IsValidObjectID("507f191e810c19729de860e"), "23 chars")
	assert.False(t, domain.IsValidObjectID("507f191e810c19729de860eaa"), "25 chars")
	assert.False(t, domain.IsValidObjectID(""))
	assert.False(t, domain.IsValidObjectID("507f191e810c19729de860ez"))
}
