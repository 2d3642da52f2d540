package pipeline

import (
	"context"

	"github.com/wildpath/naturescout/internal/domain"
)

// Source fetches discussion threads by reference.
type Source interface {
	FetchThread(ctx context.Context, ref string) (domain.Thread, error)
}

// Extractor pulls location names out of discussion text.
type Extractor interface {
	ExtractLocations(ctx context.Context, text, category string) ([]string, error)
}

// Verifier resolves the city anchor and verifies candidates against it.
type Verifier interface {
	ResolveCity(ctx context.Context, city string) (domain.CityMetadata, error)
	Verify(
		ctx context.Context, city domain.CityMetadata, category string,
		candidates []domain.AggregatedCandidate,
	) []domain.RankedLocation
}

// Cache persists pipeline output.
type Cache interface {
	GetRecord(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error)
	PutRecord(ctx context.Context, rec domain.CacheRecord) error
	GetCityMetadata(ctx context.Context, cityKey string) (domain.CityMetadata, error)
	PutCityMetadata(ctx context.Context, cityKey string, meta domain.CityMetadata) error
}
