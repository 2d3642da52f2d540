// Package verify resolves aggregated candidates against the places lookup
// and applies the locality guard, keeping only spots that actually belong
// to the queried city.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wildpath/naturescout/internal/domain"
	"github.com/wildpath/naturescout/internal/domain/geo"
	"github.com/wildpath/naturescout/internal/metrics"
	"github.com/wildpath/naturescout/internal/retry"
)

// LocalityMode selects how the guard decides city membership.
type LocalityMode string

const (
	// LocalityStrict matches the city name against the formatted address.
	LocalityStrict LocalityMode = "strict"
	// LocalityRadius accepts places within a radius of the city center.
	LocalityRadius LocalityMode = "radius"
)

// Options configures verification behavior.
type Options struct {
	Mode        LocalityMode
	RadiusKm    float64
	TopK        int
	Concurrency int
	Retry       retry.Policy
}

// Service verifies candidates and filters them by locality.
type Service struct {
	places PlaceSearcher
	opts   Options
	logger *zap.Logger
}

// New creates a verification service.
func New(places PlaceSearcher, opts Options, logger *zap.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Service{places: places, opts: opts, logger: logger}
}

// ResolveCity verifies the city itself, anchoring the locality guard and
// the city metadata record.
func (s *Service) ResolveCity(ctx context.Context, city string) (domain.CityMetadata, error) {
	place, err := retry.Do(ctx, s.opts.Retry, func() (domain.VerifiedPlace, error) {
		return s.places.SearchPlace(ctx, city)
	})
	if err != nil {
		if errors.Is(err, domain.ErrPlaceNotFound) {
			return domain.CityMetadata{}, fmt.Errorf("%w: %q", domain.ErrCityNotFound, city)
		}
		return domain.CityMetadata{}, err
	}

	return domain.CityMetadata{
		PlaceID:        place.PlaceID,
		DisplayName:    place.Name,
		NormalizedName: domain.CityKey(city),
		Lat:            place.Lat,
		Lng:            place.Lng,
	}, nil
}

// Verify resolves the top candidates concurrently. Candidates that fail
// lookup, resolve outside the city, or duplicate an earlier place id are
// dropped. A lookup outage on one candidate drops that candidate, never
// the run. Result order follows input order regardless of completion order.
func (s *Service) Verify(
	ctx context.Context, city domain.CityMetadata, category string,
	candidates []domain.AggregatedCandidate,
) []domain.RankedLocation {
	if s.opts.TopK > 0 && len(candidates) > s.opts.TopK {
		candidates = candidates[:s.opts.TopK]
	}

	results := make([]*domain.RankedLocation, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, cand := range candidates {
		g.Go(func() error {
			loc, ok := s.verifyOne(gctx, city, category, cand)
			if ok {
				results[i] = &loc
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	seen := make(map[string]bool, len(candidates))
	out := make([]domain.RankedLocation, 0, len(candidates))
	for _, r := range results {
		if r == nil || seen[r.PlaceID] {
			continue
		}
		seen[r.PlaceID] = true
		out = append(out, *r)
	}
	return out
}

func (s *Service) verifyOne(
	ctx context.Context, city domain.CityMetadata, category string,
	cand domain.AggregatedCandidate,
) (domain.RankedLocation, bool) {
	query := cand.Name + " " + city.DisplayName

	place, err := retry.Do(ctx, s.opts.Retry, func() (domain.VerifiedPlace, error) {
		return s.places.SearchPlace(ctx, query)
	})
	switch {
	case errors.Is(err, domain.ErrPlaceNotFound):
		metrics.VerificationResultsTotal.WithLabelValues("not_found").Inc()
		return domain.RankedLocation{}, false
	case err != nil:
		metrics.VerificationResultsTotal.WithLabelValues("unavailable").Inc()
		s.logger.Warn("candidate lookup failed",
			zap.String("candidate", cand.Name),
			zap.Error(err),
		)
		return domain.RankedLocation{}, false
	}

	if !s.inCity(city, place) {
		metrics.VerificationResultsTotal.WithLabelValues("wrong_city").Inc()
		return domain.RankedLocation{}, false
	}

	metrics.VerificationResultsTotal.WithLabelValues("verified").Inc()
	place.Category = category
	return domain.RankedLocation{
		VerifiedPlace: place,
		RawScore:      cand.RawScore,
		Mentions:      cand.Mentions,
	}, true
}

// inCity applies the locality guard.
func (s *Service) inCity(city domain.CityMetadata, place domain.VerifiedPlace) bool {
	if s.opts.Mode == LocalityRadius {
		return geo.WithinRadiusKm(city.Lat, city.Lng, place.Lat, place.Lng, s.opts.RadiusKm)
	}

	cityName := city.DisplayName
	// Address matching wants the bare city name, not "San Francisco, CA".
	if i := strings.Index(cityName, ","); i > 0 {
		cityName = cityName[:i]
	}
	return strings.Contains(
		strings.ToLower(place.Address),
		strings.ToLower(strings.TrimSpace(cityName)),
	)
}
