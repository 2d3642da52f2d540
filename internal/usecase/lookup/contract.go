package lookup

import (
	"context"

	"github.com/wildpath/naturescout/internal/domain"
)

// Cache reads cached pipeline output. PutRecord is only used to persist
// lazily generated summaries.
type Cache interface {
	GetRecord(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error)
	PutRecord(ctx context.Context, rec domain.CacheRecord) error
	ResolvePlace(ctx context.Context, placeID string) (domain.PlaceRef, error)
	GetCityMetadata(ctx context.Context, cityKey string) (domain.CityMetadata, error)
	ListCities(ctx context.Context) (map[string]domain.CityMetadata, error)
	Summary(ctx context.Context) (domain.CacheSummary, error)
}

// Summarizer generates a visitor-facing description for a location.
type Summarizer interface {
	Summarize(ctx context.Context, loc domain.RankedLocation, city string) string
}
