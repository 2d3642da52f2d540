// Package places verifies candidate names against the Google Places API
// (New) text search endpoint. A circuit breaker sits in front of the
// upstream so a places outage degrades runs instead of hammering it.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

const searchFieldMask = "places.displayName,places.rating,places.userRatingCount," +
	"places.types,places.formattedAddress,places.location,places.id,places.photos"

// Config holds places lookup settings.
type Config struct {
	APIKey       string
	BaseURL      string
	PhotoMaxWidth int
	MaxPhotos     int
	Timeout       time.Duration
	Logger        *zap.Logger
}

// Client performs text-search lookups against the places API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	photoWidth int
	maxPhotos  int
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a places lookup client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "places",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("places breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Not-found is a lookup outcome, not an upstream failure.
			return err == nil || errors.Is(err, domain.ErrPlaceNotFound)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		photoWidth: cfg.PhotoMaxWidth,
		maxPhotos:  cfg.MaxPhotos,
		breaker:    breaker,
		logger:     logger,
	}
}

// SearchPlace resolves a free-text query to the single best place match.
func (c *Client) SearchPlace(ctx context.Context, query string) (domain.VerifiedPlace, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.searchText(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.VerifiedPlace{}, fmt.Errorf("%w: breaker open", domain.ErrVerifierUnavailable)
		}
		return domain.VerifiedPlace{}, err
	}
	return result.(domain.VerifiedPlace), nil
}

func (c *Client) searchText(ctx context.Context, query string) (domain.VerifiedPlace, error) {
	body, err := json.Marshal(searchRequest{TextQuery: query, MaxResultCount: 1})
	if err != nil {
		return domain.VerifiedPlace{}, fmt.Errorf("marshal search request: %w", err)
	}

	url := c.baseURL + "/places:searchText"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.VerifiedPlace{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VerifiedPlace{}, fmt.Errorf("%w: %w", domain.ErrVerifierUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.VerifiedPlace{}, domain.ErrVerifierRateLimited
	case resp.StatusCode >= 500:
		return domain.VerifiedPlace{}, fmt.Errorf("%w: status %d", domain.ErrVerifierUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return domain.VerifiedPlace{}, fmt.Errorf("%w: status %d", domain.ErrPlaceNotFound, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.VerifiedPlace{}, fmt.Errorf("%w: decode response: %w", domain.ErrVerifierUnavailable, err)
	}
	if len(sr.Places) == 0 {
		return domain.VerifiedPlace{}, fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, query)
	}

	return c.toVerifiedPlace(sr.Places[0]), nil
}

func (c *Client) toVerifiedPlace(p placeResult) domain.VerifiedPlace {
	photos := make([]string, 0, c.maxPhotos)
	for _, photo := range p.Photos {
		if len(photos) == c.maxPhotos {
			break
		}
		photos = append(photos, c.PhotoURL(photo.Name))
	}

	return domain.VerifiedPlace{
		PlaceID:     p.ID,
		Name:        p.DisplayName.Text,
		Address:     p.FormattedAddress,
		Lat:         p.Location.Latitude,
		Lng:         p.Location.Longitude,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		PhotoRefs:   photos,
		Types:       p.Types,
	}
}

// PhotoURL builds a servable media URL from a photo resource name.
func (c *Client) PhotoURL(photoName string) string {
	return fmt.Sprintf("https://places.googleapis.com/v1/%s/media?maxWidthPx=%d&key=%s",
		photoName, c.photoWidth, c.apiKey)
}

type searchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
}

type searchResponse struct {
	Places []placeResult `json:"places"`
}

type placeResult struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string  `json:"formattedAddress"`
	Rating           float64 `json:"rating"`
	UserRatingCount  int     `json:"userRatingCount"`
	Types            []string `json:"types"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Photos []struct {
		Name string `json:"name"`
	} `json:"photos"`
}
