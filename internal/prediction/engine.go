package prediction

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/routing"
)

// DefaultMaxConcurrent bounds the provider fan-out. The routing
// provider is rate-limited; an unbounded fan-out risks throttling.
const DefaultMaxConcurrent = 4

// PointSource supplies the destinations predictions are computed for.
type PointSource interface {
	ListActive() []interestpoint.InterestPoint
}

// EngineConfig holds configuration for the prediction engine.
type EngineConfig struct {
	// Provider computes routes and itineraries (required).
	Provider routing.Provider

	// Points supplies active interest points (required for
	// PredictForProperty).
	Points PointSource

	// MaxConcurrent bounds concurrent provider calls.
	// Default: DefaultMaxConcurrent
	MaxConcurrent int

	// Now returns the current time. Injected for deterministic target
	// resolution in tests. Default: time.Now
	Now func() time.Time

	// Logger for engine operations.
	Logger zerolog.Logger
}

// Engine orchestrates provider calls and extraction across one property
// and N interest points, or M properties and N interest points,
// isolating per-pair failures. Individual failed pairs are logged,
// counted and omitted; they never abort the surrounding run.
type Engine struct {
	provider      routing.Provider
	points        PointSource
	maxConcurrent int
	now           func() time.Time
	logger        zerolog.Logger
}

// NewEngine creates a prediction engine.
func NewEngine(cfg EngineConfig) *Engine {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		provider:      cfg.Provider,
		points:        cfg.Points,
		maxConcurrent: maxConcurrent,
		now:           now,
		logger:        cfg.Logger,
	}
}

// PredictOne computes a single origin to destination prediction for the
// next Friday at 09:00. An empty mode defaults to driving. Public
// transport dispatches to the transit endpoint; every other mode uses
// the directions endpoint.
func (e *Engine) PredictOne(ctx context.Context, origin, dest routing.Coordinate, mode routing.TransportMode) (*TravelPrediction, error) {
	if mode == "" {
		mode = routing.ModeDriving
	}

	departure := DepartureFor(NextFriday(e.now()))

	req := routing.Request{
		Origin:      origin,
		Destination: dest,
		Mode:        mode,
		Departure:   FormatDepartureTimestamp(departure),
	}

	var (
		resp *routing.RouteResponse
		err  error
	)
	if mode == routing.ModePublicTransport {
		resp, err = e.provider.GetTransitItinerary(ctx, req)
	} else {
		resp, err = e.provider.GetDirections(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	return Extract(resp, origin, mode, departure)
}

// PredictForProperty computes predictions from a property to every
// active interest point, each using that point's own default mode.
// Pairs run concurrently up to the engine's bound, but the returned
// predictions follow registry iteration order. Zero active points
// yields an empty set with a valid prediction date, not an error.
func (e *Engine) PredictForProperty(ctx context.Context, propertyID string, location routing.Coordinate, address string) *PropertyPredictionSet {
	target := NextFriday(e.now())

	set := &PropertyPredictionSet{
		PropertyID:      propertyID,
		PropertyAddress: address,
		Location:        location,
		PredictionDate:  target.Format(dateLayout),
		Predictions:     []TravelPrediction{},
		CalculatedAt:    e.now(),
	}

	points := e.points.ListActive()
	if len(points) == 0 {
		e.logger.Warn().Str("property_id", propertyID).Msg("no active interest points configured")
		return set
	}

	results := e.predictPairs(ctx, location, points)

	for i, result := range results {
		if result == nil {
			set.FailedPairs++
			continue
		}
		result.InterestPointID = points[i].ID
		set.Predictions = append(set.Predictions, *result)
	}

	e.logger.Info().
		Str("property_id", propertyID).
		Int("predictions", len(set.Predictions)).
		Int("failed_pairs", set.FailedPairs).
		Msg("computed property predictions")

	return set
}

// PredictBatch computes predictions for multiple properties against the
// given interest points, preserving property input order in the result.
func (e *Engine) PredictBatch(ctx context.Context, properties []BatchProperty, points []interestpoint.InterestPoint) []BatchResult {
	// One flat slot per (property, point) pair; workers write disjoint
	// indexes so results stay ordered regardless of completion order.
	results := make([]*TravelPrediction, len(properties)*len(points))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, property := range properties {
		for j, point := range points {
			slot := i*len(points) + j
			g.Go(func() error {
				pred, err := e.PredictOne(ctx, property.Location, point.Location(), point.DefaultMode)
				if err != nil {
					e.logger.Error().Err(err).
						Str("property_id", property.ID).
						Str("interest_point_id", point.ID).
						Msg("prediction failed for pair")
					return nil
				}
				pred.InterestPointID = point.ID
				results[slot] = pred
				return nil
			})
		}
	}
	_ = g.Wait()

	out := make([]BatchResult, 0, len(properties))
	for i, property := range properties {
		result := BatchResult{
			PropertyID:  property.ID,
			Predictions: []TravelPrediction{},
		}
		for j := range points {
			if pred := results[i*len(points)+j]; pred != nil {
				result.Predictions = append(result.Predictions, *pred)
			} else {
				result.FailedPairs++
			}
		}
		result.TotalPredictions = len(result.Predictions)
		out = append(out, result)
	}
	return out
}

// predictPairs fans the per-point provider calls out concurrently and
// returns one slot per point, nil where the pair failed.
func (e *Engine) predictPairs(ctx context.Context, origin routing.Coordinate, points []interestpoint.InterestPoint) []*TravelPrediction {
	results := make([]*TravelPrediction, len(points))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, point := range points {
		g.Go(func() error {
			pred, err := e.PredictOne(ctx, origin, point.Location(), point.DefaultMode)
			if err != nil {
				e.logger.Error().Err(err).
					Str("interest_point_id", point.ID).
					Str("interest_point_name", point.Name).
					Msg("prediction failed for pair")
				return nil
			}
			results[i] = pred
			return nil
		})
	}
	_ = g.Wait()

	return results
}
