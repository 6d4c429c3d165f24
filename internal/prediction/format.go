package prediction

import "fmt"

// FormatDistance renders a distance for display. Distances of a
// kilometre or more get one decimal place; shorter ones keep three, so
// a 400m walk reads "0.400 km" rather than "0.4 km".
func FormatDistance(km float64) string {
	if km >= 1 {
		return fmt.Sprintf("%.1f km", km)
	}
	return fmt.Sprintf("%.3f km", km)
}

// FormatDuration renders whole minutes as "Nh MMmin" above an hour and
// "Nmin" below it.
func FormatDuration(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %02dmin", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dmin", minutes)
}
