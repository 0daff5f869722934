package services

import "time"

// Clock supplies the current moment used for default start dates and for
// remaining-days computation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same moment.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
