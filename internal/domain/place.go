package domain

// VerifiedPlace is a candidate confirmed to exist via the places lookup,
// enriched with rating, address, and photo references. PlaceID is the
// external globally unique id and the join key across cache partitions.
type VerifiedPlace struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      float64  `json:"rating,omitempty"` // 0 means absent
	ReviewCount int      `json:"review_count"`
	PhotoRefs   []string `json:"photo_refs,omitempty"`
	Types       []string `json:"types,omitempty"`
	Category    string   `json:"category"`
}

// PlaceRef locates a verified place inside the cache: which partition
// holds it and under what name. Stored in the place-id index.
type PlaceRef struct {
	PlaceID     string `json:"place_id"`
	CityKey     string `json:"city_key"`
	CategoryKey string `json:"category_key"`
	Name        string `json:"name"`
}

// RankedLocation is a verified place joined with its community signals and
// final score. Ordering within a result set is by descending FinalScore,
// ties broken by descending ReviewCount, then ascending Name.
type RankedLocation struct {
	VerifiedPlace

	RawScore   float64 `json:"raw_score"`
	FinalScore float64 `json:"final_score"`
	Mentions   int     `json:"mentions"`
	Summary    string  `json:"summary,omitempty"`
}

// Less is the canonical result-set ordering. It must stay deterministic:
// idempotent re-runs are required to produce byte-identical orderings.
func (l RankedLocation) Less(other RankedLocation) bool {
	if l.FinalScore != other.FinalScore {
		return l.FinalScore > other.FinalScore
	}
	if l.ReviewCount != other.ReviewCount {
		return l.ReviewCount > other.ReviewCount
	}
	return l.Name < other.Name
}
