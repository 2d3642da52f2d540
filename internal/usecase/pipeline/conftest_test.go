package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
	"github.com/wildpath/naturescout/internal/retry"
	"github.com/wildpath/naturescout/internal/usecase/rank"
)

// mockSource implements Source for tests.
type mockSource struct {
	mu      sync.Mutex
	fetches int
	fetchFn func(ctx context.Context, ref string) (domain.Thread, error)
}

func (m *mockSource) FetchThread(ctx context.Context, ref string) (domain.Thread, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()
	return m.fetchFn(ctx, ref)
}

func (m *mockSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// mockExtractor implements Extractor for tests.
type mockExtractor struct {
	extractFn func(ctx context.Context, text, category string) ([]string, error)
}

func (m *mockExtractor) ExtractLocations(ctx context.Context, text, category string) ([]string, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, text, category)
	}
	return nil, nil
}

// mockVerifier implements Verifier for tests.
type mockVerifier struct {
	resolveFn func(ctx context.Context, city string) (domain.CityMetadata, error)
	verifyFn  func(ctx context.Context, city domain.CityMetadata, category string,
		candidates []domain.AggregatedCandidate) []domain.RankedLocation
}

func (m *mockVerifier) ResolveCity(ctx context.Context, city string) (domain.CityMetadata, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, city)
	}
	return domain.CityMetadata{
		PlaceID:        "city-test",
		DisplayName:    city,
		NormalizedName: domain.CityKey(city),
	}, nil
}

func (m *mockVerifier) Verify(
	ctx context.Context, city domain.CityMetadata, category string,
	candidates []domain.AggregatedCandidate,
) []domain.RankedLocation {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, city, category, candidates)
	}
	out := make([]domain.RankedLocation, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedLocation{
			VerifiedPlace: domain.VerifiedPlace{
				PlaceID:  "id-" + c.Key,
				Name:     c.Name,
				Category: category,
			},
			RawScore: c.RawScore,
			Mentions: c.Mentions,
		}
	}
	return out
}

// mockCache implements Cache over an in-memory map.
type mockCache struct {
	mu      sync.Mutex
	records map[string]domain.CacheRecord
	cities  map[string]domain.CityMetadata
	puts    int

	getErr error
	putErr error
}

func newMockCache() *mockCache {
	return &mockCache{
		records: make(map[string]domain.CacheRecord),
		cities:  make(map[string]domain.CityMetadata),
	}
}

func (m *mockCache) GetRecord(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.CacheRecord{}, m.getErr
	}
	rec, ok := m.records[cityKey+"|"+categoryKey]
	if !ok {
		return domain.CacheRecord{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (m *mockCache) PutRecord(ctx context.Context, rec domain.CacheRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.records[rec.CityKey+"|"+rec.CategoryKey] = rec
	m.puts++
	return nil
}

func (m *mockCache) GetCityMetadata(ctx context.Context, cityKey string) (domain.CityMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.cities[cityKey]
	if !ok {
		return domain.CityMetadata{}, domain.ErrCityNotFound
	}
	return meta, nil
}

func (m *mockCache) PutCityMetadata(ctx context.Context, cityKey string, meta domain.CityMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cities[cityKey] = meta
	return nil
}

func (m *mockCache) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func fastOptions() Options {
	p := retry.Policy{MaxTries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return Options{
		Weights:            rank.DefaultWeights(),
		ExtractConcurrency: 2,
		RunTimeout:         5 * time.Second,
		SourceRetry:        p,
		ExtractRetry:       p,
	}
}

func testThread(ref string, comments ...domain.Comment) domain.Thread {
	return domain.Thread{Ref: ref, Title: "t", Score: 10, Comments: comments}
}

func newTestService(src *mockSource, ext *mockExtractor, ver *mockVerifier, c *mockCache) *Service {
	return New(src, ext, ver, c, fastOptions(), zap.NewNop())
}
