// Package util holds the small shared pieces: logger construction and a
// clock the CLOB client stamps auth headers and order salts from.
package util

import "time"

// Clock supplies the current time. Signing code reads it instead of the
// time package directly so tests can pin timestamps and salts.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// RealClock delegates to the time package.
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }
