package cache

import (
	"encoding/json"
	"fmt"

	"github.com/wildpath/naturescout/internal/domain"
)

// placeIndexEntry is the JSON-serializable value of a place_id_index key.
type placeIndexEntry struct {
	CityKey     string `json:"city_key"`
	CategoryKey string `json:"category_key"`
	Name        string `json:"name"`
}

func (e placeIndexEntry) toJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal place index entry: %w", err)
	}
	return data, nil
}

func placeIndexFromJSON(data []byte) (placeIndexEntry, error) {
	var e placeIndexEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return placeIndexEntry{}, fmt.Errorf("unmarshal place index entry: %w", err)
	}
	return e, nil
}

// metadataDoc is the cache_metadata marker document.
type metadataDoc struct {
	Version string `json:"version"`
}

func metadataToJSON(version string) ([]byte, error) {
	data, err := json.Marshal(metadataDoc{Version: version})
	if err != nil {
		return nil, fmt.Errorf("marshal cache metadata: %w", err)
	}
	return data, nil
}

func recordToJSON(rec domain.CacheRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s:%s: %w", rec.CityKey, rec.CategoryKey, err)
	}
	return data, nil
}

func recordFromJSON(data []byte) (domain.CacheRecord, error) {
	var rec domain.CacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func cityToJSON(meta domain.CityMetadata) ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal city metadata: %w", err)
	}
	return data, nil
}

func cityFromJSON(data []byte) (domain.CityMetadata, error) {
	var meta domain.CityMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.CityMetadata{}, fmt.Errorf("unmarshal city metadata: %w", err)
	}
	return meta, nil
}
