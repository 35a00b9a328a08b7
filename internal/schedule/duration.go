package schedule

import (
	"fmt"
	"strconv"
)

// FormatDuration renders a minute count for display: "45 minutes",
// "1 hour", "1.5 hours". Hours keep at most two decimals.
func FormatDuration(minutes int) string {
	sign := ""
	// uint64 holds the magnitude of math.MinInt as well.
	mag := uint64(minutes)
	if minutes < 0 {
		sign = "-"
		mag = -mag
	}
	if mag < 60 {
		if mag == 1 {
			return sign + "1 minute"
		}
		return fmt.Sprintf("%s%d minutes", sign, mag)
	}
	hours := trimZeros(strconv.FormatFloat(float64(mag)/60, 'f', 2, 64))
	if hours == "1" {
		return sign + "1 hour"
	}
	return sign + hours + " hours"
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// EndTimeFor derives a slot's end time from its start and the session
// length. Slots may not run past midnight.
func EndTimeFor(start Clock, durationMinutes int) (Clock, error) {
	if durationMinutes <= 0 {
		return "", fmt.Errorf("session duration must be positive, got %d", durationMinutes)
	}
	m, err := start.Minutes()
	if err != nil {
		return "", err
	}
	if durationMinutes >= 24*60-m {
		return "", fmt.Errorf("session starting %s for %s runs past midnight", start, FormatDuration(durationMinutes))
	}
	end := m + durationMinutes
	return ClockAt(end/60, end%60), nil
}
