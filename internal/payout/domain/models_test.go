package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyPeriod(t *testing.T) {
	start, end := MonthlyPeriod(2024, time.January)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC), end)
}

func TestMonthlyPeriod_LeapFebruary(t *testing.T) {
	_, end := MonthlyPeriod(2024, time.February)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), end)
}

func TestMonthlyPeriod_DecemberRollsOver(t *testing.T) {
	start, end := MonthlyPeriod(2023, time.December)
	assert.Equal(t, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC), end)
	assert.True(t, end.Before(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
}
