package sharedserver

import (
	"fmt"
	"time"
)

// ParseGracePeriod parses a duration string of the form
// "<number><unit>"..., e.g. "30m", "2h30m", with time.ParseDuration, so the
// units h/m/s and the sub-second ms/us/ns are all accepted. An empty
// string means "no grace period configured" and returns ok=false.
func ParseGracePeriod(s string) (d time.Duration, ok bool, err error) {
	if s == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid grace period %q: %w", s, err)
	}
	if d <= 0 {
		return 0, false, fmt.Errorf("invalid grace period %q: must be greater than zero", s)
	}
	return d, true, nil
}
