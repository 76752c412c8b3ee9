package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorstHealth(t *testing.T) {
	tests := []struct {
		name     string
		states   []FeedHealth
		expected FeedHealth
	}{
		{"all ok", []FeedHealth{HealthOK, HealthOK, HealthOK}, HealthOK},
		{"degraded dominates ok", []FeedHealth{HealthOK, HealthDegraded, HealthOK}, HealthDegraded},
		{"failed dominates degraded", []FeedHealth{HealthOK, HealthFailed, HealthDegraded}, HealthFailed},
		{"single failed", []FeedHealth{HealthFailed}, HealthFailed},
		{"empty reports failed", nil, HealthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WorstHealth(tt.states))
		})
	}
}

func TestDistrictLookups(t *testing.T) {
	assert.Len(t, DistrictSlugs(), 9)
	assert.Equal(t, "Mallee", DistrictName("mallee"))
	assert.Equal(t, "West & South Gippsland", DistrictName("west-and-south-gippsland"))
	assert.Equal(t, "West and South Gippsland", DistrictFeedName("west-and-south-gippsland"))
	assert.Equal(t, "Central", DistrictFeedName("central"))
	assert.Equal(t, "nowhere", DistrictName("nowhere"), "unknown slug falls through")
	assert.True(t, KnownDistrict("north-central"))
	assert.False(t, KnownDistrict("north-west"))
}
