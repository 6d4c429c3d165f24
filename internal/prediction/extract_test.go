package prediction

import (
	"errors"
	"testing"
	"time"

	"github.com/nestscout/nestscout/internal/routing"
)

var testOrigin = routing.Coordinate{Lat: 53.3498, Lon: -6.2603}

func testDeparture() time.Time {
	return time.Date(2025, time.September, 5, 9, 0, 0, 0, time.UTC)
}

func TestExtractRegular(t *testing.T) {
	resp := &routing.RouteResponse{
		Kind:     routing.KindRegular,
		Provider: "here",
		Regular: &routing.RegularRoute{
			Summary: &routing.RouteSummary{DurationSeconds: 125, LengthMeters: 42500},
		},
	}

	pred, err := Extract(resp, testOrigin, routing.ModeDriving, testDeparture())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// 125 seconds floors to 2 minutes, never rounds to 3.
	if pred.DurationMinutes != 2 {
		t.Errorf("duration = %d min, want 2", pred.DurationMinutes)
	}
	if pred.DistanceKm != 42.5 {
		t.Errorf("distance = %v km, want 42.5", pred.DistanceKm)
	}
	if pred.PredictionDate != "2025-09-05" {
		t.Errorf("prediction date = %q", pred.PredictionDate)
	}
	if pred.DepartureTime != "09:00" {
		t.Errorf("departure = %q, want 09:00", pred.DepartureTime)
	}
	if pred.ArrivalTime != "09:02" {
		t.Errorf("arrival = %q, want 09:02", pred.ArrivalTime)
	}
	if pred.Legs != nil {
		t.Errorf("regular route should carry no legs, got %d", len(pred.Legs))
	}
	if pred.TotalWalkingMinutes != nil || pred.TotalWalkingDistanceKm != nil {
		t.Error("regular route should carry no walking totals")
	}
}

func TestExtractRegularMissingSummary(t *testing.T) {
	tests := []struct {
		name string
		resp *routing.RouteResponse
	}{
		{
			name: "nil summary",
			resp: &routing.RouteResponse{Kind: routing.KindRegular, Regular: &routing.RegularRoute{}},
		},
		{
			name: "nil route",
			resp: &routing.RouteResponse{Kind: routing.KindRegular},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.resp, testOrigin, routing.ModeDriving, testDeparture())
			if !errors.Is(err, ErrMalformedRoute) {
				t.Errorf("err = %v, want ErrMalformedRoute", err)
			}
		})
	}
}

func TestExtractTransit(t *testing.T) {
	resp := &routing.RouteResponse{
		Kind:     routing.KindTransit,
		Provider: "here",
		Transit: &routing.TransitItinerary{
			Sections: []routing.TransitSection{
				{
					Type:          routing.SectionTypePedestrian,
					TravelSummary: routing.RouteSummary{DurationSeconds: 300, LengthMeters: 400},
				},
				{
					Type:          routing.SectionTypeTransit,
					TravelSummary: routing.RouteSummary{DurationSeconds: 900, LengthMeters: 5000},
					Transport:     routing.SectionTransport{Mode: "bus", Name: "Bus 38", Line: "38"},
				},
			},
		},
	}

	pred, err := Extract(resp, testOrigin, routing.ModePublicTransport, testDeparture())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if pred.DurationMinutes != 20 {
		t.Errorf("duration = %d min, want 20", pred.DurationMinutes)
	}
	if pred.DistanceKm != 5.4 {
		t.Errorf("distance = %v km, want 5.4", pred.DistanceKm)
	}
	if pred.ArrivalTime != "09:20" {
		t.Errorf("arrival = %q, want 09:20", pred.ArrivalTime)
	}

	if pred.TotalWalkingMinutes == nil || *pred.TotalWalkingMinutes != 5 {
		t.Errorf("walking minutes = %v, want 5", pred.TotalWalkingMinutes)
	}
	if pred.TotalWalkingDistanceKm == nil || *pred.TotalWalkingDistanceKm != 0.4 {
		t.Errorf("walking distance = %v, want 0.4", pred.TotalWalkingDistanceKm)
	}

	if len(pred.Legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(pred.Legs))
	}

	walk := pred.Legs[0]
	if walk.Type != routing.SectionTypePedestrian || walk.Mode != "walking" || walk.Name != "Walking" {
		t.Errorf("walking leg = %+v", walk)
	}
	if walk.DurationMinutes != 5 || walk.DistanceMeters != 400 {
		t.Errorf("walking leg totals = %+v", walk)
	}

	bus := pred.Legs[1]
	if bus.Mode != "bus" || bus.Name != "Bus 38" || bus.Line != "38" {
		t.Errorf("transit leg = %+v", bus)
	}

	// Leg minutes sum to the floored total within rounding.
	if walk.DurationMinutes+bus.DurationMinutes != pred.DurationMinutes {
		t.Errorf("leg sum %d != total %d", walk.DurationMinutes+bus.DurationMinutes, pred.DurationMinutes)
	}
}

func TestExtractTransitMissingTransportDefaults(t *testing.T) {
	resp := &routing.RouteResponse{
		Kind: routing.KindTransit,
		Transit: &routing.TransitItinerary{
			Sections: []routing.TransitSection{
				{
					Type:          routing.SectionTypeTransit,
					TravelSummary: routing.RouteSummary{DurationSeconds: 600, LengthMeters: 3000},
				},
			},
		},
	}

	pred, err := Extract(resp, testOrigin, routing.ModePublicTransport, testDeparture())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	leg := pred.Legs[0]
	if leg.Mode != "unknown" || leg.Name != "Unknown" || leg.Line != "Unknown" {
		t.Errorf("leg defaults = %+v, want unknown/Unknown/Unknown", leg)
	}
}

func TestExtractTransitEmptyItinerary(t *testing.T) {
	resp := &routing.RouteResponse{
		Kind:    routing.KindTransit,
		Transit: &routing.TransitItinerary{},
	}

	_, err := Extract(resp, testOrigin, routing.ModePublicTransport, testDeparture())
	if !errors.Is(err, ErrMalformedRoute) {
		t.Errorf("err = %v, want ErrMalformedRoute", err)
	}
}

func TestExtractArrivalCrossesMidnightClock(t *testing.T) {
	resp := &routing.RouteResponse{
		Kind: routing.KindRegular,
		Regular: &routing.RegularRoute{
			// 16 hours: arrival lands at 01:00 the next day.
			Summary: &routing.RouteSummary{DurationSeconds: 16 * 3600, LengthMeters: 900000},
		},
	}

	pred, err := Extract(resp, testOrigin, routing.ModeDriving, testDeparture())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if pred.ArrivalTime != "01:00" {
		t.Errorf("arrival = %q, want 01:00", pred.ArrivalTime)
	}
}
