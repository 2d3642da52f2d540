// Package lookup serves the read side: cached locations by partition, by
// place id, city listings, location detail, and the cache summary.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

// Service answers read queries over the cache.
type Service struct {
	cache      Cache
	summarizer Summarizer
	logger     *zap.Logger
}

// New creates a lookup service.
func New(cache Cache, summarizer Summarizer, logger *zap.Logger) *Service {
	return &Service{cache: cache, summarizer: summarizer, logger: logger}
}

// Locations returns the cached record for a city and category. City and
// category accept display forms; keys are normalized here.
func (s *Service) Locations(ctx context.Context, city, category string) (domain.CacheRecord, error) {
	if city == "" || category == "" {
		return domain.CacheRecord{}, fmt.Errorf("%w: city and category are required", domain.ErrInvalidRequest)
	}
	return s.cache.GetRecord(ctx, domain.CityKey(city), domain.CategoryKey(category))
}

// ByPlace returns the cached record holding a place id, joined through the
// place index, restricted to the requested category.
func (s *Service) ByPlace(ctx context.Context, placeID, category string) (domain.CacheRecord, error) {
	if placeID == "" || category == "" {
		return domain.CacheRecord{}, fmt.Errorf("%w: place id and category are required", domain.ErrInvalidRequest)
	}

	ref, err := s.cache.ResolvePlace(ctx, placeID)
	if err != nil {
		return domain.CacheRecord{}, err
	}
	return s.cache.GetRecord(ctx, ref.CityKey, domain.CategoryKey(category))
}

// CityInfo pairs a city key with its metadata for listings.
type CityInfo struct {
	Key  string              `json:"key"`
	Meta domain.CityMetadata `json:"meta"`
}

// Cities lists every city the cache knows about, sorted by key.
func (s *Service) Cities(ctx context.Context) ([]CityInfo, error) {
	cities, err := s.cache.ListCities(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CityInfo, 0, len(cities))
	for key, meta := range cities {
		out = append(out, CityInfo{Key: key, Meta: meta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Detail returns one location from a cached partition by name, generating
// and persisting its summary on first read. Summary failures degrade to
// the stored record; the read never fails on a summary.
func (s *Service) Detail(ctx context.Context, name, city, category string) (domain.RankedLocation, error) {
	if name == "" {
		return domain.RankedLocation{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}

	rec, err := s.Locations(ctx, city, category)
	if err != nil {
		return domain.RankedLocation{}, err
	}

	idx := -1
	for i, loc := range rec.Locations {
		if strings.EqualFold(loc.Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.RankedLocation{}, fmt.Errorf("%w: %q in %s/%s", domain.ErrRecordNotFound, name, city, category)
	}

	loc := rec.Locations[idx]
	if loc.Summary != "" {
		return loc, nil
	}

	loc.Summary = s.summarizer.Summarize(ctx, loc, city)
	rec.Locations[idx] = loc
	if err := s.cache.PutRecord(ctx, rec); err != nil {
		// Serve the summary anyway; the next read regenerates it.
		s.logger.Warn("failed to persist generated summary",
			zap.String("location", loc.Name),
			zap.Error(err),
		)
	}
	return loc, nil
}

// CacheSummary returns the aggregate inspection view.
func (s *Service) CacheSummary(ctx context.Context) (domain.CacheSummary, error) {
	return s.cache.Summary(ctx)
}
