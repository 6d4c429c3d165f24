package prediction

import "time"

// Departure conventions shared by every prediction.
const (
	// DepartureClock is the fixed departure time of day, "HH:MM".
	DepartureClock = "09:00"

	departureHour = 9

	// departureTimeLayout renders a local ISO-8601 timestamp without a
	// zone offset, as the routing provider expects.
	departureTimeLayout = "2006-01-02T15:04:05"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// NextFriday returns the next Friday strictly after t's calendar date.
// When t itself falls on a Friday the result rolls over to the Friday
// of the following week. Time of day is preserved from midnight; only
// the date component is meaningful.
func NextFriday(t time.Time) time.Time {
	daysAhead := int(time.Friday) - int(t.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	year, month, day := t.AddDate(0, 0, daysAhead).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DepartureFor returns the departure timestamp on the given target
// date: 09:00 local time.
func DepartureFor(target time.Time) time.Time {
	year, month, day := target.Date()
	return time.Date(year, month, day, departureHour, 0, 0, 0, target.Location())
}

// FormatDepartureTimestamp renders a departure timestamp in the
// provider's expected ISO-8601 form, e.g. "2025-09-05T09:00:00".
func FormatDepartureTimestamp(departure time.Time) string {
	return departure.Format(departureTimeLayout)
}
