package cache

import (
	"context"
	"strings"
	"time"

	"github.com/wildpath/naturescout/internal/db"
	"github.com/wildpath/naturescout/internal/domain"
)

// mockStore implements the consumer interface for tests. Unset functions
// fall back to an in-memory map.
type mockStore struct {
	data map[string][]byte

	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte) error
	existsFn func(ctx context.Context, key string) (bool, error)
	scanFn   func(ctx context.Context, pattern string) ([]string, error)
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	var keys []string
	for k := range m.data {
		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// matchPattern is a minimal glob matcher supporting '*' wildcards.
func matchPattern(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		i := strings.Index(s, part)
		if i < 0 {
			return false
		}
		s = s[i+len(part):]
	}
	return true
}

func testRecord(cityKey, categoryKey string, locs ...domain.RankedLocation) domain.CacheRecord {
	return domain.CacheRecord{
		CityKey:     cityKey,
		CategoryKey: categoryKey,
		Locations:   locs,
		UpdatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Version:     domain.SchemaVersion,
	}
}

func testLocation(placeID, name string) domain.RankedLocation {
	return domain.RankedLocation{
		VerifiedPlace: domain.VerifiedPlace{
			PlaceID:     placeID,
			Name:        name,
			Address:     name + " Rd, San Francisco, CA",
			Rating:      4.5,
			ReviewCount: 120,
			Category:    "hiking_spots",
		},
		RawScore:   3.2,
		FinalScore: 0.8,
		Mentions:   3,
	}
}
