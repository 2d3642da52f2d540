package lookup

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

// mockCache implements Cache with function fields.
type mockCache struct {
	getRecordFn    func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error)
	putRecordFn    func(ctx context.Context, rec domain.CacheRecord) error
	resolvePlaceFn func(ctx context.Context, placeID string) (domain.PlaceRef, error)
	getCityFn      func(ctx context.Context, cityKey string) (domain.CityMetadata, error)
	listCitiesFn   func(ctx context.Context) (map[string]domain.CityMetadata, error)
	summaryFn      func(ctx context.Context) (domain.CacheSummary, error)
}

func (m *mockCache) GetRecord(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
	return m.getRecordFn(ctx, cityKey, categoryKey)
}

func (m *mockCache) PutRecord(ctx context.Context, rec domain.CacheRecord) error {
	if m.putRecordFn != nil {
		return m.putRecordFn(ctx, rec)
	}
	return nil
}

func (m *mockCache) ResolvePlace(ctx context.Context, placeID string) (domain.PlaceRef, error) {
	return m.resolvePlaceFn(ctx, placeID)
}

func (m *mockCache) GetCityMetadata(ctx context.Context, cityKey string) (domain.CityMetadata, error) {
	return m.getCityFn(ctx, cityKey)
}

func (m *mockCache) ListCities(ctx context.Context) (map[string]domain.CityMetadata, error) {
	return m.listCitiesFn(ctx)
}

func (m *mockCache) Summary(ctx context.Context) (domain.CacheSummary, error) {
	return m.summaryFn(ctx)
}

// mockSummarizer returns a fixed summary and records calls.
type mockSummarizer struct {
	calls int
	text  string
}

func (m *mockSummarizer) Summarize(ctx context.Context, loc domain.RankedLocation, city string) string {
	m.calls++
	return m.text
}

func record(locs ...domain.RankedLocation) domain.CacheRecord {
	return domain.CacheRecord{
		CityKey:     "san_francisco_ca",
		CategoryKey: "hiking_spots",
		Locations:   locs,
		Version:     domain.SchemaVersion,
	}
}

func loc(id, name string) domain.RankedLocation {
	return domain.RankedLocation{
		VerifiedPlace: domain.VerifiedPlace{PlaceID: id, Name: name},
	}
}

func TestLocations_NormalizesKeys(t *testing.T) {
	var gotCity, gotCat string
	c := &mockCache{getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
		gotCity, gotCat = cityKey, categoryKey
		return record(loc("p1", "Lands End")), nil
	}}
	s := New(c, &mockSummarizer{}, zap.NewNop())

	rec, err := s.Locations(context.Background(), "San Francisco, CA", "Hiking Spots")
	if err != nil {
		t.Fatalf("Locations: %v", err)
	}
	if gotCity != "san_francisco_ca" || gotCat != "hiking_spots" {
		t.Errorf("keys = %q/%q", gotCity, gotCat)
	}
	if len(rec.Locations) != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestLocations_RequiresInputs(t *testing.T) {
	s := New(&mockCache{}, &mockSummarizer{}, zap.NewNop())

	if _, err := s.Locations(context.Background(), "", "hiking_spots"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("missing city: got %v", err)
	}
	if _, err := s.Locations(context.Background(), "SF", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("missing category: got %v", err)
	}
}

func TestByPlace_JoinsThroughIndex(t *testing.T) {
	c := &mockCache{
		resolvePlaceFn: func(ctx context.Context, placeID string) (domain.PlaceRef, error) {
			if placeID != "p1" {
				t.Errorf("place id = %q", placeID)
			}
			return domain.PlaceRef{PlaceID: "p1", CityKey: "san_francisco_ca", CategoryKey: "hiking_spots"}, nil
		},
		getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
			if cityKey != "san_francisco_ca" || categoryKey != "viewpoints" {
				t.Errorf("keys = %q/%q", cityKey, categoryKey)
			}
			return record(loc("p2", "Twin Peaks")), nil
		},
	}
	s := New(c, &mockSummarizer{}, zap.NewNop())

	rec, err := s.ByPlace(context.Background(), "p1", "viewpoints")
	if err != nil {
		t.Fatalf("ByPlace: %v", err)
	}
	if len(rec.Locations) != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestByPlace_UnknownPlace(t *testing.T) {
	c := &mockCache{resolvePlaceFn: func(ctx context.Context, placeID string) (domain.PlaceRef, error) {
		return domain.PlaceRef{}, domain.ErrRecordNotFound
	}}
	s := New(c, &mockSummarizer{}, zap.NewNop())

	_, err := s.ByPlace(context.Background(), "ghost", "hiking_spots")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCities_SortedByKey(t *testing.T) {
	c := &mockCache{listCitiesFn: func(ctx context.Context) (map[string]domain.CityMetadata, error) {
		return map[string]domain.CityMetadata{
			"portland_or":      {DisplayName: "Portland, OR"},
			"san_francisco_ca": {DisplayName: "San Francisco, CA"},
			"oakland_ca":       {DisplayName: "Oakland, CA"},
		}, nil
	}}
	s := New(c, &mockSummarizer{}, zap.NewNop())

	cities, err := s.Cities(context.Background())
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}
	want := []string{"oakland_ca", "portland_or", "san_francisco_ca"}
	for i, w := range want {
		if cities[i].Key != w {
			t.Errorf("position %d = %q, want %q", i, cities[i].Key, w)
		}
	}
}

func TestDetail_GeneratesAndPersistsSummary(t *testing.T) {
	stored := record(loc("p1", "Lands End"), loc("p2", "Mount Sutro"))
	var persisted *domain.CacheRecord
	c := &mockCache{
		getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
			return stored, nil
		},
		putRecordFn: func(ctx context.Context, rec domain.CacheRecord) error {
			persisted = &rec
			return nil
		},
	}
	sum := &mockSummarizer{text: "A windswept coastal walk."}
	s := New(c, sum, zap.NewNop())

	got, err := s.Detail(context.Background(), "lands end", "San Francisco, CA", "hiking_spots")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if got.Summary != "A windswept coastal walk." {
		t.Errorf("summary = %q", got.Summary)
	}
	if sum.calls != 1 {
		t.Errorf("summarizer calls = %d, want 1", sum.calls)
	}
	if persisted == nil {
		t.Fatal("summary not persisted")
	}
	if persisted.Locations[0].Summary == "" {
		t.Error("persisted record missing summary")
	}
	if persisted.Locations[1].Summary != "" {
		t.Error("unrelated location gained a summary")
	}
}

func TestDetail_ReusesStoredSummary(t *testing.T) {
	withSummary := loc("p1", "Lands End")
	withSummary.Summary = "Already written."
	c := &mockCache{
		getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
			return record(withSummary), nil
		},
		putRecordFn: func(ctx context.Context, rec domain.CacheRecord) error {
			t.Error("must not rewrite the record when the summary exists")
			return nil
		},
	}
	sum := &mockSummarizer{text: "fresh"}
	s := New(c, sum, zap.NewNop())

	got, err := s.Detail(context.Background(), "Lands End", "SF", "hiking_spots")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if got.Summary != "Already written." || sum.calls != 0 {
		t.Errorf("summary = %q, calls = %d", got.Summary, sum.calls)
	}
}

func TestDetail_UnknownName(t *testing.T) {
	c := &mockCache{getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
		return record(loc("p1", "Lands End")), nil
	}}
	s := New(c, &mockSummarizer{}, zap.NewNop())

	_, err := s.Detail(context.Background(), "Hidden Gulch", "SF", "hiking_spots")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDetail_ServesSummaryWhenPersistFails(t *testing.T) {
	c := &mockCache{
		getRecordFn: func(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
			return record(loc("p1", "Lands End")), nil
		},
		putRecordFn: func(ctx context.Context, rec domain.CacheRecord) error {
			return domain.ErrCacheUnavailable
		},
	}
	s := New(c, &mockSummarizer{text: "Still served."}, zap.NewNop())

	got, err := s.Detail(context.Background(), "Lands End", "SF", "hiking_spots")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if got.Summary != "Still served." {
		t.Errorf("summary = %q", got.Summary)
	}
}
