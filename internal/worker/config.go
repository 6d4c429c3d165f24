// Package worker provides background job processing for NestScout.
package worker

import (
	"time"
)

// EnrichConfig holds configuration for the prediction enrichment job.
type EnrichConfig struct {
	// PageSize is the number of properties loaded per store page when
	// walking the full catalogue.
	// Default: 50
	PageSize int

	// BatchSize is the number of properties handed to the prediction
	// engine per batch.
	// Default: 10
	BatchSize int

	// Timeout is the timeout for one prediction batch.
	// Default: 5 minutes
	Timeout time.Duration

	// PublishToNotion enables publishing refreshed predictions to the
	// Notion workspace.
	// Default: true
	PublishToNotion bool
}

// DefaultEnrichConfig returns the default enrichment configuration.
func DefaultEnrichConfig() EnrichConfig {
	return EnrichConfig{
		PageSize:        50,
		BatchSize:       10,
		Timeout:         5 * time.Minute,
		PublishToNotion: true,
	}
}

func (c EnrichConfig) withDefaults() EnrichConfig {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return c
}
