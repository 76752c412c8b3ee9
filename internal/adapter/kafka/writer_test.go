package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

func TestSerializeToMessage(t *testing.T) {
	projectedAt := time.Date(2026, time.January, 13, 9, 0, 0, 0, time.UTC)
	record := sensor.Record{
		DistrictSlug: "north-central",
		DistrictName: "North Central",
		Health:       domain.HealthDegraded,
		ProjectedAt:  projectedAt,
		Readings: []sensor.Reading{
			{Name: "cfa_north_central_fire_district_rating_today", State: "HIGH"},
		},
	}

	msg, err := serializeToMessage(record)
	require.NoError(t, err)

	assert.Equal(t, []byte("north-central"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "north-central", headers["district"])
	assert.Equal(t, "degraded", headers["health"])
	assert.Equal(t, "2026-01-13T09:00:00Z", headers["projected_at"])

	var decoded sensor.Record
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, record.DistrictSlug, decoded.DistrictSlug)
	assert.Equal(t, record.Health, decoded.Health)
	require.Len(t, decoded.Readings, 1)
	assert.Equal(t, "HIGH", decoded.Readings[0].State)
}
