package verify

import (
	"context"

	"github.com/wildpath/naturescout/internal/domain"
)

// PlaceSearcher resolves free-text queries to verified places.
type PlaceSearcher interface {
	SearchPlace(ctx context.Context, query string) (domain.VerifiedPlace, error)
}
