package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

func TestDecodeEnvelope_Valid(t *testing.T) {
	body := []byte(`{
		"event_name": "WeightSaveEvent",
		"timestamp": "2019-06-02T11:00:00Z",
		"weight": {"child_id": "5a62be07de34500146d9c544", "value": 50.2}
	}`)

	env, err := decodeEnvelope(body, EventWeightSave)

	require.NoError(t, err)
	assert.Equal(t, EventWeightSave, env.EventName)
	assert.NotEmpty(t, env.Weight)
	assert.Empty(t, env.Sleep)
}

func TestDecodeEnvelope_NotJSON(t *testing.T) {
	_, err := decodeEnvelope([]byte("not json at all"), EventWeightSave)

	var malformed *domain.MalformedEnvelopeError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecodeEnvelope_MissingEventName(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"timestamp": "2019-06-02T11:00:00Z"}`), EventWeightSave)

	var malformed *domain.MalformedEnvelopeError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Description, "event_name is required")
}

func TestDecodeEnvelope_WrongEventName(t *testing.T) {
	body := []byte(`{"event_name": "SleepSaveEvent", "sleep": {}}`)

	_, err := decodeEnvelope(body, EventWeightSave)

	var malformed *domain.MalformedEnvelopeError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Description, "SleepSaveEvent")
}

func TestSplitPayload_SingleObject(t *testing.T) {
	items, err := splitPayload(json.RawMessage(`{"child_id": "abc"}`))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"child_id": "abc"}`, string(items[0]))
}

func TestSplitPayload_Array(t *testing.T) {
	items, err := splitPayload(json.RawMessage(`[{"a": 1}, {"b": 2}, {"c": 3}]`))

	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSplitPayload_Missing(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(""), json.RawMessage("   ")} {
		_, err := splitPayload(raw)

		var malformed *domain.MalformedEnvelopeError
		assert.ErrorAs(t, err, &malformed)
	}
}
