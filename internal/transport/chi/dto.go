package chi

import (
	"time"

	"github.com/wildpath/naturescout/internal/domain"
	lookupuc "github.com/wildpath/naturescout/internal/usecase/lookup"
)

// runRequest is the POST /pipeline/runs body.
type runRequest struct {
	City       string   `json:"city"`
	Category   string   `json:"category"`
	ThreadRefs []string `json:"thread_refs"`
	Force      bool     `json:"force"`
}

// locationResponse is the wire form of one ranked location.
type locationResponse struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count"`
	PhotoRefs   []string `json:"photo_refs,omitempty"`
	Category    string   `json:"category"`
	Mentions    int      `json:"mentions"`
	FinalScore  float64  `json:"final_score"`
	Summary     string   `json:"summary,omitempty"`
}

// recordResponse is the wire form of one cached partition. Locations is
// always present, even when empty, so clients can tell an explicit empty
// result from an error by the 200 status and the empty_reason field.
type recordResponse struct {
	City        string             `json:"city"`
	Category    string             `json:"category"`
	Locations   []locationResponse `json:"locations"`
	Count       int                `json:"count"`
	EmptyReason string             `json:"empty_reason,omitempty"`
	SourceRefs  []string           `json:"source_refs,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Version     string             `json:"version"`
}

type cityResponse struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Categories  []string `json:"categories"`
}

type citiesResponse struct {
	Cities []cityResponse `json:"cities"`
}

func locationToResponse(loc domain.RankedLocation) locationResponse {
	return locationResponse{
		PlaceID:     loc.PlaceID,
		Name:        loc.Name,
		Address:     loc.Address,
		Lat:         loc.Lat,
		Lng:         loc.Lng,
		Rating:      loc.Rating,
		ReviewCount: loc.ReviewCount,
		PhotoRefs:   loc.PhotoRefs,
		Category:    loc.Category,
		Mentions:    loc.Mentions,
		FinalScore:  loc.FinalScore,
		Summary:     loc.Summary,
	}
}

func recordToResponse(rec domain.CacheRecord) recordResponse {
	locs := make([]locationResponse, len(rec.Locations))
	for i, l := range rec.Locations {
		locs[i] = locationToResponse(l)
	}
	return recordResponse{
		City:        rec.CityKey,
		Category:    rec.CategoryKey,
		Locations:   locs,
		Count:       len(locs),
		EmptyReason: rec.EmptyReason,
		SourceRefs:  rec.SourceRefs,
		UpdatedAt:   rec.UpdatedAt,
		Version:     rec.Version,
	}
}

func citiesToResponse(infos []lookupuc.CityInfo) citiesResponse {
	cities := make([]cityResponse, len(infos))
	for i, info := range infos {
		cities[i] = cityResponse{
			Key:         info.Key,
			DisplayName: info.Meta.DisplayName,
			Lat:         info.Meta.Lat,
			Lng:         info.Meta.Lng,
			Categories:  info.Meta.Categories,
		}
	}
	return citiesResponse{Cities: cities}
}
