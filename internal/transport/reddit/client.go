// Package reddit fetches discussion threads from the public Reddit JSON
// endpoints. No library in the ecosystem covers the unauthenticated
// listing format, so this is a thin hand-rolled client over net/http.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

// threadRefPattern extracts the submission id from a full thread URL.
var threadRefPattern = regexp.MustCompile(`/comments/([A-Za-z0-9]+)`)

// bareIDPattern matches a thread reference that is already a bare id.
var bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Config holds discussion source settings.
type Config struct {
	BaseURL       string
	UserAgent     string
	CommentLimit  int
	MinCommentLen int
	Timeout       time.Duration
	Logger        *zap.Logger
}

// Client fetches threads with their top-level comments.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	userAgent     string
	commentLimit  int
	minCommentLen int
	logger        *zap.Logger
}

// NewClient creates a discussion source client.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:     cfg.UserAgent,
		commentLimit:  cfg.CommentLimit,
		minCommentLen: cfg.MinCommentLen,
		logger:        cfg.Logger,
	}
}

// FetchThread retrieves one thread by reference (full URL or bare id).
// Comments come back sorted by descending score, capped at the configured
// limit, with deleted, removed, and too-short bodies dropped.
func (c *Client) FetchThread(ctx context.Context, ref string) (domain.Thread, error) {
	id, err := parseThreadRef(ref)
	if err != nil {
		return domain.Thread{}, err
	}

	url := fmt.Sprintf("%s/comments/%s.json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Thread{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, ref)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Thread{}, domain.ErrSourceRateLimited
	case resp.StatusCode != http.StatusOK:
		return domain.Thread{}, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var listings []listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return domain.Thread{}, fmt.Errorf("%w: decode response: %w", domain.ErrSourceUnavailable, err)
	}
	if len(listings) < 2 {
		return domain.Thread{}, fmt.Errorf("%w: unexpected listing shape", domain.ErrSourceUnavailable)
	}

	thread, err := c.parseThread(id, listings)
	if err != nil {
		return domain.Thread{}, err
	}

	c.logger.Debug("fetched thread",
		zap.String("ref", id),
		zap.Int("comments", len(thread.Comments)),
	)
	return thread, nil
}

func (c *Client) parseThread(id string, listings []listing) (domain.Thread, error) {
	if len(listings[0].Data.Children) == 0 {
		return domain.Thread{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	post := listings[0].Data.Children[0].Data

	comments := make([]domain.Comment, 0, len(listings[1].Data.Children))
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue // "more" stubs and other non-comment children
		}
		body := strings.TrimSpace(child.Data.Body)
		if body == "[deleted]" || body == "[removed]" || len(body) < c.minCommentLen {
			continue
		}
		comments = append(comments, domain.Comment{Body: body, Score: child.Data.Score})
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Score > comments[j].Score
	})
	if c.commentLimit > 0 && len(comments) > c.commentLimit {
		comments = comments[:c.commentLimit]
	}

	return domain.Thread{
		Ref:      id,
		Title:    post.Title,
		Body:     post.Selftext,
		Score:    post.Score,
		Comments: comments,
	}, nil
}

// parseThreadRef accepts a full thread URL or a bare submission id.
func parseThreadRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := threadRefPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: unparseable thread reference %q", domain.ErrInvalidRequest, ref)
}

// listing mirrors the two-element response of the comments endpoint.
type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Body     string `json:"body"`
				Score    int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
