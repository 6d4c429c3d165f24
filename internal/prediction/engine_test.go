package prediction

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/routing"
)

// fakeProvider serves canned durations keyed by destination and fails
// for destinations it has no entry for.
type fakeProvider struct {
	mu              sync.Mutex
	durations       map[routing.Coordinate]int // seconds
	directionsCalls []routing.Request
	transitCalls    []routing.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GetDirections(ctx context.Context, req routing.Request) (*routing.RouteResponse, error) {
	f.mu.Lock()
	f.directionsCalls = append(f.directionsCalls, req)
	f.mu.Unlock()

	seconds, ok := f.durations[req.Destination]
	if !ok {
		return nil, routing.ErrNoRouteFound
	}
	return &routing.RouteResponse{
		Kind:     routing.KindRegular,
		Provider: "fake",
		Regular: &routing.RegularRoute{
			Summary: &routing.RouteSummary{DurationSeconds: seconds, LengthMeters: seconds * 10},
		},
	}, nil
}

func (f *fakeProvider) GetTransitItinerary(ctx context.Context, req routing.Request) (*routing.RouteResponse, error) {
	f.mu.Lock()
	f.transitCalls = append(f.transitCalls, req)
	f.mu.Unlock()

	seconds, ok := f.durations[req.Destination]
	if !ok {
		return nil, routing.ErrNoRouteFound
	}
	return &routing.RouteResponse{
		Kind:     routing.KindTransit,
		Provider: "fake",
		Transit: &routing.TransitItinerary{
			Sections: []routing.TransitSection{
				{
					Type:          routing.SectionTypeTransit,
					TravelSummary: routing.RouteSummary{DurationSeconds: seconds, LengthMeters: seconds * 10},
					Transport:     routing.SectionTransport{Mode: "bus", Name: "Bus 1", Line: "1"},
				},
			},
		},
	}, nil
}

type fakePointSource struct {
	points []interestpoint.InterestPoint
}

func (f *fakePointSource) ListActive() []interestpoint.InterestPoint {
	return f.points
}

// fixedNow is a Monday; the resolved target Friday is 2025-09-05.
func fixedNow() time.Time {
	return time.Date(2025, time.September, 1, 14, 30, 0, 0, time.UTC)
}

func newTestEngine(provider routing.Provider, points PointSource) *Engine {
	return NewEngine(EngineConfig{
		Provider:      provider,
		Points:        points,
		MaxConcurrent: 2,
		Now:           fixedNow,
		Logger:        zerolog.Nop(),
	})
}

var (
	home = routing.Coordinate{Lat: 53.3498, Lon: -6.2603}
	work = routing.Coordinate{Lat: 53.343, Lon: -6.254}
	gym  = routing.Coordinate{Lat: 53.36, Lon: -6.24}
	far  = routing.Coordinate{Lat: 54.0, Lon: -7.0}
)

func TestPredictOneDefaultsToDriving(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200}}
	engine := newTestEngine(provider, &fakePointSource{})

	pred, err := engine.PredictOne(context.Background(), home, work, "")
	if err != nil {
		t.Fatalf("PredictOne: %v", err)
	}

	if pred.Mode != routing.ModeDriving {
		t.Errorf("mode = %q, want driving", pred.Mode)
	}
	if len(provider.directionsCalls) != 1 || len(provider.transitCalls) != 0 {
		t.Errorf("calls = %d directions, %d transit; want 1, 0", len(provider.directionsCalls), len(provider.transitCalls))
	}
	if got := provider.directionsCalls[0].Mode; got != routing.ModeDriving {
		t.Errorf("request mode = %q, want driving", got)
	}
}

func TestPredictOneTargetsNextFriday(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200}}
	engine := newTestEngine(provider, &fakePointSource{})

	pred, err := engine.PredictOne(context.Background(), home, work, routing.ModePublicTransport)
	if err != nil {
		t.Fatalf("PredictOne: %v", err)
	}

	if len(provider.transitCalls) != 1 {
		t.Fatalf("transit calls = %d, want 1", len(provider.transitCalls))
	}
	if got := provider.transitCalls[0].Departure; got != "2025-09-05T09:00:00" {
		t.Errorf("departure param = %q, want 2025-09-05T09:00:00", got)
	}
	if pred.PredictionDate != "2025-09-05" {
		t.Errorf("prediction date = %q, want 2025-09-05", pred.PredictionDate)
	}
	if pred.DepartureTime != "09:00" {
		t.Errorf("departure time = %q, want 09:00", pred.DepartureTime)
	}
	if pred.ArrivalTime != "09:20" {
		t.Errorf("arrival = %q, want 09:20", pred.ArrivalTime)
	}
}

func TestPredictOneIdempotent(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1500}}
	engine := newTestEngine(provider, &fakePointSource{})

	first, err := engine.PredictOne(context.Background(), home, work, routing.ModeDriving)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := engine.PredictOne(context.Background(), home, work, routing.ModeDriving)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("predictions differ:\n%+v\n%+v", first, second)
	}
}

func TestPredictForPropertyNoActivePoints(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{}}
	engine := newTestEngine(provider, &fakePointSource{})

	set := engine.PredictForProperty(context.Background(), "prop_1", home, "1 Main St")

	if len(set.Predictions) != 0 {
		t.Errorf("got %d predictions, want 0", len(set.Predictions))
	}
	if set.PredictionDate != "2025-09-05" {
		t.Errorf("prediction date = %q, want a valid resolved Friday", set.PredictionDate)
	}
	if set.FailedPairs != 0 {
		t.Errorf("failed pairs = %d, want 0", set.FailedPairs)
	}
}

func TestPredictForPropertyIsolatesFailures(t *testing.T) {
	// work resolves, far does not.
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200}}
	points := &fakePointSource{points: []interestpoint.InterestPoint{
		{ID: "work", Name: "Office", Latitude: work.Lat, Longitude: work.Lon, IsActive: true, DefaultMode: routing.ModeDriving},
		{ID: "far", Name: "Far away", Latitude: far.Lat, Longitude: far.Lon, IsActive: true, DefaultMode: routing.ModeDriving},
	}}
	engine := newTestEngine(provider, points)

	set := engine.PredictForProperty(context.Background(), "prop_1", home, "1 Main St")

	if len(set.Predictions) != 1 {
		t.Fatalf("got %d predictions, want 1", len(set.Predictions))
	}
	if set.Predictions[0].InterestPointID != "work" {
		t.Errorf("surviving prediction = %q, want work", set.Predictions[0].InterestPointID)
	}
	if set.FailedPairs != 1 {
		t.Errorf("failed pairs = %d, want 1", set.FailedPairs)
	}
}

func TestPredictForPropertyUsesPointDefaultMode(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200, gym: 600}}
	points := &fakePointSource{points: []interestpoint.InterestPoint{
		{ID: "work", Name: "Office", Latitude: work.Lat, Longitude: work.Lon, IsActive: true, DefaultMode: routing.ModePublicTransport},
		{ID: "gym", Name: "Gym", Latitude: gym.Lat, Longitude: gym.Lon, IsActive: true, DefaultMode: routing.ModeBicycling},
	}}
	engine := newTestEngine(provider, points)

	set := engine.PredictForProperty(context.Background(), "prop_1", home, "1 Main St")

	if len(set.Predictions) != 2 {
		t.Fatalf("got %d predictions, want 2", len(set.Predictions))
	}
	// Output follows registry order even though calls ran concurrently.
	if set.Predictions[0].InterestPointID != "work" || set.Predictions[1].InterestPointID != "gym" {
		t.Errorf("order = [%s, %s], want [work, gym]", set.Predictions[0].InterestPointID, set.Predictions[1].InterestPointID)
	}
	if set.Predictions[0].Mode != routing.ModePublicTransport {
		t.Errorf("work mode = %q, want publicTransport", set.Predictions[0].Mode)
	}
	if set.Predictions[1].Mode != routing.ModeBicycling {
		t.Errorf("gym mode = %q, want bicycling", set.Predictions[1].Mode)
	}
	if len(provider.transitCalls) != 1 {
		t.Errorf("transit calls = %d, want 1", len(provider.transitCalls))
	}
}

func TestPredictBatchPreservesPropertyOrder(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200}}
	points := []interestpoint.InterestPoint{
		{ID: "work", Name: "Office", Latitude: work.Lat, Longitude: work.Lon, IsActive: true, DefaultMode: routing.ModeDriving},
	}
	engine := newTestEngine(provider, &fakePointSource{})

	properties := []BatchProperty{
		{ID: "prop_1", Location: home},
		{ID: "prop_2", Location: routing.Coordinate{Lat: 53.33, Lon: -6.28}},
		{ID: "prop_3", Location: routing.Coordinate{Lat: 53.32, Lon: -6.29}},
	}

	results := engine.PredictBatch(context.Background(), properties, points)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"prop_1", "prop_2", "prop_3"} {
		if results[i].PropertyID != want {
			t.Errorf("results[%d].PropertyID = %q, want %q", i, results[i].PropertyID, want)
		}
	}

	// Every property routed to the same reachable point.
	for _, result := range results {
		if result.TotalPredictions != 1 {
			t.Errorf("%s: total = %d, want 1", result.PropertyID, result.TotalPredictions)
		}
		if result.Predictions[0].InterestPointID != "work" {
			t.Errorf("%s: point = %q", result.PropertyID, result.Predictions[0].InterestPointID)
		}
	}
}

func TestPredictBatchCountsFailedPairs(t *testing.T) {
	provider := &fakeProvider{durations: map[routing.Coordinate]int{work: 1200}}
	points := []interestpoint.InterestPoint{
		{ID: "work", Name: "Office", Latitude: work.Lat, Longitude: work.Lon, IsActive: true, DefaultMode: routing.ModeDriving},
		{ID: "far", Name: "Far away", Latitude: far.Lat, Longitude: far.Lon, IsActive: true, DefaultMode: routing.ModeDriving},
	}
	engine := newTestEngine(provider, &fakePointSource{})

	results := engine.PredictBatch(context.Background(), []BatchProperty{{ID: "prop_1", Location: home}}, points)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].TotalPredictions != 1 {
		t.Errorf("total = %d, want 1", results[0].TotalPredictions)
	}
	if results[0].FailedPairs != 1 {
		t.Errorf("failed pairs = %d, want 1", results[0].FailedPairs)
	}
}
