package services

import "time"

// Clock is injected wherever expiry is evaluated so tests can move time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func orSystem(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}
