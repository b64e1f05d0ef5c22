package planner

import (
	"math"
	"time"
)

// NoExpiry is returned for items without an expiry date; they carry no urgency.
const NoExpiry = 9999

// DaysUntilExpiry returns the whole days left before item expires, rounded up and never
// below 1 so that items expiring today or already overdue still count as the most urgent.
func DaysUntilExpiry(item PantryItem, now time.Time) int {
	if item.ExpiryDate == nil || item.ExpiryDate.IsZero() {
		return NoExpiry
	}
	days := math.Ceil(item.ExpiryDate.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	if days > NoExpiry {
		return NoExpiry
	}
	return int(days)
}
