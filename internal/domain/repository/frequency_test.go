package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyDuration(t *testing.T) {
	assert.Equal(t, time.Minute, FreqMinute.Duration())
	assert.Equal(t, time.Hour, FreqHour.Duration())
	assert.Equal(t, 24*time.Hour, FreqDay.Duration())
	assert.Equal(t, time.Duration(0), Frequency("5m").Duration())
}

func TestIsValidFrequency(t *testing.T) {
	assert.True(t, IsValidFrequency(FreqMinute))
	assert.True(t, IsValidFrequency(FreqHour))
	assert.True(t, IsValidFrequency(FreqDay))
	assert.False(t, IsValidFrequency(Frequency("1w")))
	assert.False(t, IsValidFrequency(Frequency("")))
}

func TestNormalizeFrequency(t *testing.T) {
	assert.Equal(t, FreqHour, NormalizeFrequency(""))
	assert.Equal(t, FreqMinute, NormalizeFrequency("1m"))
	assert.Equal(t, FreqDay, NormalizeFrequency("1d"))
	assert.Equal(t, FreqHour, NormalizeFrequency("banana"))
}
