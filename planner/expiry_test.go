package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysUntilExpiry(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := testNow.Add(d)
		return &v
	}

	tests := []struct {
		name     string
		expiry   *time.Time
		expected int
	}{
		{name: "no expiry date", expiry: nil, expected: NoExpiry},
		{name: "zero time", expiry: &time.Time{}, expected: NoExpiry},
		{name: "exactly two days", expiry: at(48 * time.Hour), expected: 2},
		{name: "partial day rounds up", expiry: at(36 * time.Hour), expected: 2},
		{name: "within the hour", expiry: at(time.Hour), expected: 1},
		{name: "expires now", expiry: at(0), expected: 1},
		{name: "already expired", expiry: at(-72 * time.Hour), expected: 1},
		{name: "far future is capped", expiry: at(20000 * 24 * time.Hour), expected: NoExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilExpiry(PantryItem{Name: "milk", ExpiryDate: tt.expiry}, testNow)
			assert.Equal(t, tt.expected, got)
		})
	}
}
