// Package cache persists pipeline output in the KV store: ranked location
// records partitioned by (city_key, category_key), city metadata, a
// place-id index for reverse lookups, and a schema-version marker.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wildpath/naturescout/internal/db"
	"github.com/wildpath/naturescout/internal/domain"
)

// store is the consumer interface for the cache repository (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the usecase cache interfaces over a KV store.
type Repo struct {
	store  store
	prefix string
}

// New creates a cache repository. All keys are namespaced under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) recordKey(cityKey, categoryKey string) string {
	return r.prefix + "locations:" + cityKey + ":" + categoryKey
}

func (r *Repo) cityKey(cityKey string) string {
	return r.prefix + "city_metadata:" + cityKey
}

func (r *Repo) placeKey(placeID string) string {
	return r.prefix + "place_id_index:" + placeID
}

func (r *Repo) metadataKey() string {
	return r.prefix + "cache_metadata"
}

// mapErr translates store failures into domain errors. Key misses become
// ErrRecordNotFound; everything else is a cache outage.
func mapErr(err error) error {
	if errors.Is(err, db.ErrKeyNotFound) {
		return domain.ErrRecordNotFound
	}
	return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
}

// GetRecord reads the cached record for one (city, category) partition.
func (r *Repo) GetRecord(ctx context.Context, cityKey, categoryKey string) (domain.CacheRecord, error) {
	data, err := r.store.Get(ctx, r.recordKey(cityKey, categoryKey))
	if err != nil {
		return domain.CacheRecord{}, mapErr(err)
	}
	return recordFromJSON(data)
}

// PutRecord overwrites the partition record in a single SET, then updates
// the city category union and the place index. The record write is the
// commit point; index updates are best-effort on top of it.
func (r *Repo) PutRecord(ctx context.Context, rec domain.CacheRecord) error {
	data, err := recordToJSON(rec)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.recordKey(rec.CityKey, rec.CategoryKey), data); err != nil {
		return mapErr(err)
	}

	for _, loc := range rec.Locations {
		entry := placeIndexEntry{CityKey: rec.CityKey, CategoryKey: rec.CategoryKey, Name: loc.Name}
		entryData, err := entry.toJSON()
		if err != nil {
			return err
		}
		if err := r.store.Set(ctx, r.placeKey(loc.PlaceID), entryData); err != nil {
			return mapErr(err)
		}
	}

	return nil
}

// GetCityMetadata reads metadata for a known city.
func (r *Repo) GetCityMetadata(ctx context.Context, cityKey string) (domain.CityMetadata, error) {
	data, err := r.store.Get(ctx, r.cityKey(cityKey))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.CityMetadata{}, domain.ErrCityNotFound
		}
		return domain.CityMetadata{}, mapErr(err)
	}
	return cityFromJSON(data)
}

// PutCityMetadata writes city metadata, unioning categories with any
// existing entry so concurrent category runs never shrink the set.
func (r *Repo) PutCityMetadata(ctx context.Context, cityKey string, meta domain.CityMetadata) error {
	existing, err := r.GetCityMetadata(ctx, cityKey)
	if err != nil && !errors.Is(err, domain.ErrCityNotFound) {
		return err
	}
	for _, cat := range existing.Categories {
		meta.AddCategory(cat)
	}

	data, err := cityToJSON(meta)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.cityKey(cityKey), data); err != nil {
		return mapErr(err)
	}
	return nil
}

// ResolvePlace looks up the partition holding a verified place id.
func (r *Repo) ResolvePlace(ctx context.Context, placeID string) (domain.PlaceRef, error) {
	data, err := r.store.Get(ctx, r.placeKey(placeID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.PlaceRef{}, domain.ErrRecordNotFound
		}
		return domain.PlaceRef{}, mapErr(err)
	}
	entry, err := placeIndexFromJSON(data)
	if err != nil {
		return domain.PlaceRef{}, err
	}
	return domain.PlaceRef{
		PlaceID:     placeID,
		CityKey:     entry.CityKey,
		CategoryKey: entry.CategoryKey,
		Name:        entry.Name,
	}, nil
}

// ListCities returns metadata for every known city, keyed by city key.
func (r *Repo) ListCities(ctx context.Context) (map[string]domain.CityMetadata, error) {
	keys, err := r.store.Scan(ctx, r.cityKey("*"))
	if err != nil {
		return nil, mapErr(err)
	}

	cities := make(map[string]domain.CityMetadata, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue // deleted between SCAN and GET
			}
			return nil, mapErr(err)
		}
		meta, err := cityFromJSON(data)
		if err != nil {
			return nil, err
		}
		cities[strings.TrimPrefix(key, r.cityKey(""))] = meta
	}
	return cities, nil
}

// Summary walks every cached partition and aggregates counts per city and
// category. Intended for operational inspection, not hot paths.
func (r *Repo) Summary(ctx context.Context) (domain.CacheSummary, error) {
	keys, err := r.store.Scan(ctx, r.recordKey("*", "*"))
	if err != nil {
		return domain.CacheSummary{}, mapErr(err)
	}

	summary := domain.CacheSummary{Cities: make(map[string]domain.CitySummary)}
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return domain.CacheSummary{}, mapErr(err)
		}
		rec, err := recordFromJSON(data)
		if err != nil {
			return domain.CacheSummary{}, err
		}

		city, ok := summary.Cities[rec.CityKey]
		if !ok {
			city = domain.CitySummary{Categories: make(map[string]domain.CategorySummary)}
		}
		city.Categories[rec.CategoryKey] = domain.CategorySummary{
			LocationCount: len(rec.Locations),
			EmptyReason:   rec.EmptyReason,
			LastUpdated:   rec.UpdatedAt,
		}
		city.TotalLocations += len(rec.Locations)
		summary.Cities[rec.CityKey] = city
		summary.TotalLocations += len(rec.Locations)
	}
	summary.TotalCities = len(summary.Cities)
	return summary, nil
}

// EnsureMetadata writes the schema-version marker if it is not present.
func (r *Repo) EnsureMetadata(ctx context.Context) error {
	exists, err := r.store.Exists(ctx, r.metadataKey())
	if err != nil {
		return mapErr(err)
	}
	if exists {
		return nil
	}

	data, err := metadataToJSON(domain.SchemaVersion)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.metadataKey(), data); err != nil {
		return mapErr(err)
	}
	return nil
}
