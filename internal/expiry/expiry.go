package expiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is how long an access credential stays valid after issuance.
const DefaultWindow = 7 * 24 * time.Hour

// Window returns the validity window unless override>0.
func Window(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return DefaultWindow
}

// ExpiresAt returns the instant a credential issued at issue stops being valid.
func ExpiresAt(issue time.Time, window time.Duration) time.Time {
	return issue.Add(Window(window)).UTC().Truncate(time.Second)
}

// MaxAge returns the window in whole seconds, for cookie Max-Age.
func MaxAge(window time.Duration) int {
	return int(Window(window) / time.Second)
}

// ParseWindow accepts Go durations ("168h") and whole days ("7d").
func ParseWindow(in string) (time.Duration, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return 0, fmt.Errorf("window is required")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("window days must be a positive integer: %q", in)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse window: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("window must be positive: %q", in)
	}
	return d, nil
}
