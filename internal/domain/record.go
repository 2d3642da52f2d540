package domain

import "time"

// SchemaVersion is the cache record schema version stored in the
// cache_metadata record. Bump only on incompatible layout changes.
const SchemaVersion = "2.0"

// CacheRecord is the persisted unit: the ranked result set for one
// (city_key, category_key) partition. Overwritten whole on re-runs, never
// merged; readers observe either the old record or the new one.
type CacheRecord struct {
	CityKey     string           `json:"city_key"`
	CategoryKey string           `json:"category_key"`
	Locations   []RankedLocation `json:"locations"`
	// EmptyReason is set on explicit empty results so callers can tell
	// "nothing found" from "could not look".
	EmptyReason string    `json:"empty_reason,omitempty"`
	SourceRefs  []string  `json:"source_refs,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     string    `json:"version"`
}

// Empty reports whether the record is an explicit empty result.
func (r CacheRecord) Empty() bool {
	return len(r.Locations) == 0
}

// CacheSummary is a read-only inspection view over the whole cache.
type CacheSummary struct {
	TotalCities    int                    `json:"total_cities"`
	TotalLocations int                    `json:"total_locations"`
	Cities         map[string]CitySummary `json:"cities"`
}

// CitySummary aggregates one city's cached partitions.
type CitySummary struct {
	TotalLocations int                        `json:"total_locations"`
	Categories     map[string]CategorySummary `json:"categories"`
}

// CategorySummary describes one cached (city, category) partition.
type CategorySummary struct {
	LocationCount int       `json:"location_count"`
	EmptyReason   string    `json:"empty_reason,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}
