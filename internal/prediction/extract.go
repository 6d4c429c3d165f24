package prediction

import (
	"fmt"
	"time"

	"github.com/nestscout/nestscout/internal/routing"
)

// Extract normalizes a tagged provider response into a TravelPrediction.
// The algorithm is selected by the response tag alone, never by
// inspecting the payload shape. The departure timestamp anchors the
// arrival-time computation; wall-clock "now" is never consulted.
func Extract(resp *routing.RouteResponse, origin routing.Coordinate, mode routing.TransportMode, departure time.Time) (*TravelPrediction, error) {
	switch resp.Kind {
	case routing.KindRegular:
		return extractRegular(resp.Regular, origin, mode, departure)
	case routing.KindTransit:
		return extractTransit(resp.Transit, origin, mode, departure)
	default:
		return nil, fmt.Errorf("unknown response kind %d", resp.Kind)
	}
}

// extractRegular reads the route totals from a directions response.
// Durations floor to whole minutes; a 125-second trip is 2 minutes.
func extractRegular(route *routing.RegularRoute, origin routing.Coordinate, mode routing.TransportMode, departure time.Time) (*TravelPrediction, error) {
	if route == nil || route.Summary == nil {
		return nil, ErrMalformedRoute
	}

	seconds := route.Summary.DurationSeconds

	return &TravelPrediction{
		Origin:          origin,
		Mode:            mode,
		DistanceKm:      float64(route.Summary.LengthMeters) / 1000,
		DurationMinutes: seconds / 60,
		PredictionDate:  departure.Format(dateLayout),
		DepartureTime:   DepartureClock,
		ArrivalTime:     arrivalClock(departure, seconds),
	}, nil
}

// extractTransit walks the itinerary's sections in order, accumulating
// overall totals and, separately, walking-only totals over pedestrian
// sections, and building one leg per section. Missing transport fields
// fall back to their "unknown" defaults rather than failing.
func extractTransit(itinerary *routing.TransitItinerary, origin routing.Coordinate, mode routing.TransportMode, departure time.Time) (*TravelPrediction, error) {
	if itinerary == nil || len(itinerary.Sections) == 0 {
		return nil, ErrMalformedRoute
	}

	var (
		totalSeconds   int
		totalMeters    int
		walkingSeconds int
		walkingMeters  int
	)
	legs := make([]RouteLeg, 0, len(itinerary.Sections))

	for _, section := range itinerary.Sections {
		totalSeconds += section.TravelSummary.DurationSeconds
		totalMeters += section.TravelSummary.LengthMeters

		leg := RouteLeg{
			Type:            section.Type,
			DurationMinutes: section.TravelSummary.DurationSeconds / 60,
			DistanceMeters:  section.TravelSummary.LengthMeters,
		}

		switch section.Type {
		case routing.SectionTypePedestrian:
			walkingSeconds += section.TravelSummary.DurationSeconds
			walkingMeters += section.TravelSummary.LengthMeters
			leg.Mode = "walking"
			leg.Name = "Walking"
		case routing.SectionTypeTransit:
			leg.Mode = defaultIfEmpty(section.Transport.Mode, unknownTransportMode)
			leg.Name = defaultIfEmpty(section.Transport.Name, unknownTransportName)
			leg.Line = defaultIfEmpty(section.Transport.Line, unknownTransportLine)
		}

		legs = append(legs, leg)
	}

	walkingMinutes := walkingSeconds / 60
	walkingKm := float64(walkingMeters) / 1000

	return &TravelPrediction{
		Origin:                 origin,
		Mode:                   mode,
		DistanceKm:             float64(totalMeters) / 1000,
		DurationMinutes:        totalSeconds / 60,
		PredictionDate:         departure.Format(dateLayout),
		DepartureTime:          DepartureClock,
		ArrivalTime:            arrivalClock(departure, totalSeconds),
		Legs:                   legs,
		TotalWalkingMinutes:    &walkingMinutes,
		TotalWalkingDistanceKm: &walkingKm,
	}, nil
}

// arrivalClock renders departure plus the given duration as "HH:MM" in
// the departure's own zone.
func arrivalClock(departure time.Time, seconds int) string {
	return departure.Add(time.Duration(seconds) * time.Second).Format(clockLayout)
}

func defaultIfEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
