package domain

import "sort"

// CityMetadata describes a city known to the cache. Created on the first
// successful verification for a city, updated (categories unioned) on later
// runs, never deleted by normal operation.
type CityMetadata struct {
	PlaceID        string   `json:"place_id"`
	DisplayName    string   `json:"display_name"`
	NormalizedName string   `json:"normalized_name"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Categories     []string `json:"categories"`
}

// AddCategory unions a category into the known set, keeping the slice
// sorted so serialized metadata stays stable across runs.
func (c *CityMetadata) AddCategory(category string) {
	for _, existing := range c.Categories {
		if existing == category {
			return
		}
	}
	c.Categories = append(c.Categories, category)
	sort.Strings(c.Categories)
}
