package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeOn(t *testing.T) {
	birth := time.Date(2014, 6, 15, 0, 0, 0, 0, time.UTC)

	// day before the birthday
	assert.Equal(t, 11, ageOn(birth, time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
	// on the birthday
	assert.Equal(t, 12, ageOn(birth, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
	// day after
	assert.Equal(t, 12, ageOn(birth, time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)))
}

func TestAgeOnLeapBirthday(t *testing.T) {
	birth := time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC)

	// In non-leap years the anniversary lands on March 1st.
	assert.Equal(t, 9, ageOn(birth, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10, ageOn(birth, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}
