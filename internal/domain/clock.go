package domain

import "time"

// Wire formats for task timestamps.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}
