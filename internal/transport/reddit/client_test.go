package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		UserAgent:     "naturescout-test/1.0",
		CommentLimit:  25,
		MinCommentLen: 20,
		Timeout:       5 * time.Second,
		Logger:        zap.NewNop(),
	})
}

const threadJSON = `[
  {"data": {"children": [
    {"kind": "t3", "data": {"title": "Best hikes near SF?", "selftext": "Looking for weekend trails.", "score": 120}}
  ]}},
  {"data": {"children": [
    {"kind": "t1", "data": {"body": "Lands End trail is gorgeous at sunset, go early.", "score": 40}},
    {"kind": "t1", "data": {"body": "[deleted]", "score": 99}},
    {"kind": "t1", "data": {"body": "Mount Sutro has a great fern forest worth the climb.", "score": 85}},
    {"kind": "t1", "data": {"body": "yes", "score": 300}},
    {"kind": "more", "data": {"body": "", "score": 0}}
  ]}}
]`

func TestFetchThread_ParsesAndOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/abc123.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "naturescout-test/1.0" {
			t.Errorf("missing user agent, got %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, threadJSON)
	}))
	defer srv.Close()

	thread, err := testClient(srv.URL).FetchThread(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FetchThread: %v", err)
	}

	if thread.Title != "Best hikes near SF?" {
		t.Errorf("title = %q", thread.Title)
	}
	// Deleted and too-short comments dropped, rest sorted by score desc.
	if len(thread.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(thread.Comments))
	}
	if thread.Comments[0].Score != 85 || thread.Comments[1].Score != 40 {
		t.Errorf("comments not sorted by score: %+v", thread.Comments)
	}
}

func TestFetchThread_AcceptsFullURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/xyz789.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, threadJSON)
	}))
	defer srv.Close()

	ref := "https://www.reddit.com/r/hiking/comments/xyz789/best_hikes/"
	if _, err := testClient(srv.URL).FetchThread(context.Background(), ref); err != nil {
		t.Fatalf("FetchThread: %v", err)
	}
}

func TestFetchThread_CapsComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
		  {"data": {"children": [{"kind": "t3", "data": {"title": "t", "score": 1}}]}},
		  {"data": {"children": [
			{"kind": "t1", "data": {"body": "first comment long enough to keep", "score": 3}},
			{"kind": "t1", "data": {"body": "second comment long enough to keep", "score": 2}},
			{"kind": "t1", "data": {"body": "third comment long enough to keep", "score": 1}}
		  ]}}
		]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.commentLimit = 2

	thread, err := c.FetchThread(context.Background(), "cap1")
	if err != nil {
		t.Fatalf("FetchThread: %v", err)
	}
	if len(thread.Comments) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(thread.Comments))
	}
	if thread.Comments[0].Score != 3 {
		t.Errorf("cap kept wrong comments: %+v", thread.Comments)
	}
}

func TestFetchThread_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchThread(context.Background(), "missing1")
	if !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestFetchThread_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchThread(context.Background(), "busy1")
	if !errors.Is(err, domain.ErrSourceRateLimited) {
		t.Fatalf("expected ErrSourceRateLimited, got %v", err)
	}
	if !domain.Retryable(err) {
		t.Error("rate limit should be retryable")
	}
}

func TestFetchThread_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchThread(context.Background(), "broken1")
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestParseThreadRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"bare id", "abc123", "abc123", false},
		{"full url", "https://www.reddit.com/r/hiking/comments/abc123/title/", "abc123", false},
		{"url without trailing slug", "https://reddit.com/comments/xyz9", "xyz9", false},
		{"garbage", "not a ref!", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseThreadRef(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseThreadRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
