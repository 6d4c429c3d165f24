package interestpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/routing"
)

// RegistryConfig holds configuration for the file-backed registry.
type RegistryConfig struct {
	// Path is the JSON configuration file location.
	Path string

	// Logger for registry operations.
	Logger zerolog.Logger
}

// Registry is a file-backed store of interest points. Points load once
// at construction; mutations apply in memory and persist via Save.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	path   string
	points []InterestPoint
	logger zerolog.Logger
}

// NewRegistry creates a registry from the JSON document at cfg.Path. A
// missing file yields an empty registry, not an error; individual
// entries that fail to parse or validate are logged and skipped
// without aborting the load.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{
		path:   cfg.Path,
		logger: cfg.Logger,
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn().Str("path", r.path).Msg("interest point configuration file not found")
			return nil
		}
		return fmt.Errorf("reading interest point configuration: %w", err)
	}

	// Entries decode individually so one malformed point cannot take
	// down the rest of the document.
	var doc struct {
		InterestPoints []json.RawMessage `json:"interest_points"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing interest point configuration: %w", err)
	}

	for _, raw := range doc.InterestPoints {
		point, err := decodePoint(raw)
		if err != nil {
			r.logger.Error().Err(err).RawJSON("entry", raw).Msg("skipping invalid interest point entry")
			continue
		}
		r.points = append(r.points, point)
	}

	r.logger.Info().Int("count", len(r.points)).Msg("loaded interest points")
	return nil
}

// decodePoint parses one registry entry, applying the active-by-default
// and driving-by-default conventions.
func decodePoint(raw json.RawMessage) (InterestPoint, error) {
	var wire struct {
		InterestPoint
		IsActive *bool `json:"is_active"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return InterestPoint{}, err
	}

	point := wire.InterestPoint
	point.IsActive = wire.IsActive == nil || *wire.IsActive
	if point.Category == "" {
		point.Category = "general"
	}
	if point.DefaultMode == "" {
		point.DefaultMode = routing.ModeDriving
	}

	if err := point.Validate(); err != nil {
		return InterestPoint{}, err
	}
	return point, nil
}

// All returns every interest point in insertion order.
func (r *Registry) All() []InterestPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]InterestPoint, len(r.points))
	copy(out, r.points)
	return out
}

// ListActive returns the active interest points in insertion order.
func (r *Registry) ListActive() []InterestPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]InterestPoint, 0, len(r.points))
	for _, p := range r.points {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

// GetByID returns the interest point with the given ID.
func (r *Registry) GetByID(id string) (InterestPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.points {
		if p.ID == id {
			return p, nil
		}
	}
	return InterestPoint{}, ErrNotFound
}

// GetByCategory returns the interest points in the given category.
func (r *Registry) GetByCategory(category string) []InterestPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]InterestPoint, 0)
	for _, p := range r.points {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Add appends a new interest point.
func (r *Registry) Add(point InterestPoint) error {
	if point.Category == "" {
		point.Category = "general"
	}
	if point.DefaultMode == "" {
		point.DefaultMode = routing.ModeDriving
	}
	if err := point.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.points {
		if existing.ID == point.ID {
			return ErrDuplicateID
		}
	}

	point.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	r.points = append(r.points, point)

	r.logger.Info().Str("id", point.ID).Str("name", point.Name).Msg("added interest point")
	return nil
}

// Update replaces the stored point with the given ID, preserving its
// creation timestamp and position.
func (r *Registry) Update(id string, point InterestPoint) error {
	point.ID = id
	if err := point.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.points {
		if existing.ID == id {
			point.CreatedAt = existing.CreatedAt
			point.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			r.points[i] = point

			r.logger.Info().Str("id", id).Msg("updated interest point")
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the interest point with the given ID.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.points {
		if existing.ID == id {
			r.points = append(r.points[:i], r.points[i+1:]...)

			r.logger.Info().Str("id", id).Msg("deleted interest point")
			return nil
		}
	}
	return ErrNotFound
}

// SetActive flips the active flag on the interest point with the given
// ID.
func (r *Registry) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.points {
		if r.points[i].ID == id {
			r.points[i].IsActive = active
			r.points[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return nil
		}
	}
	return ErrNotFound
}

// Save persists the current points back to the configuration file.
func (r *Registry) Save() error {
	data, err := r.Export()
	if err != nil {
		return err
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("writing interest point configuration: %w", err)
	}

	r.logger.Info().Str("path", r.path).Msg("saved interest point configuration")
	return nil
}

// Export renders the full configuration document as indented JSON.
func (r *Registry) Export() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := configDocument{
		Settings:       defaultSettings(),
		InterestPoints: r.points,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding interest point configuration: %w", err)
	}
	return data, nil
}

// Import replaces the registry contents with the points from the given
// configuration document. Invalid entries are skipped, as on load.
func (r *Registry) Import(data []byte) (int, error) {
	var doc struct {
		InterestPoints []json.RawMessage `json:"interest_points"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing interest point configuration: %w", err)
	}

	points := make([]InterestPoint, 0, len(doc.InterestPoints))
	for _, raw := range doc.InterestPoints {
		point, err := decodePoint(raw)
		if err != nil {
			r.logger.Error().Err(err).Msg("skipping invalid interest point entry on import")
			continue
		}
		points = append(points, point)
	}

	r.mu.Lock()
	r.points = points
	r.mu.Unlock()

	r.logger.Info().Int("count", len(points)).Msg("imported interest points")
	return len(points), nil
}
