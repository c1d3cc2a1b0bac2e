package txn

import (
	"errors"
	"time"
)

// Clock supplies wall-clock time for expiration stamps.
type Clock interface {
	Now() (time.Time, error)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (time.Time, error)

// Now implements Clock.
func (f ClockFunc) Now() (time.Time, error) { return f() }

// FixedClock always reports t. Used to make builds reproducible.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() (time.Time, error) { return t, nil })
}

// SystemClock reads time.Now and refuses readings at or before the Unix
// epoch, which only happen when the host clock was never set.
type SystemClock struct{}

var errClockUnset = errors.New("system clock reports a time at or before the unix epoch")

// Now implements Clock.
func (SystemClock) Now() (time.Time, error) {
	now := time.Now()
	if now.Unix() <= 0 {
		return time.Time{}, errClockUnset
	}
	return now, nil
}
