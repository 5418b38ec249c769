package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moorea/moodboard/internal/logger"
)

const testTimeout = 2 * time.Second

func TestUnsplashSearch(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"abc","urls":{"regular":"https://img/abc","thumb":"https://img/abc-t"},
			 "user":{"name":"Jo"},"links":{"download_location":"https://api/dl/abc"}},
			{"id":"def","urls":{"small":"https://img/def-s"},"user":{"name":"Sam"},"links":{}}
		]}`))
	}))
	defer srv.Close()

	u := NewUnsplash("key123", testTimeout, nil, logger.NewNop())
	u.baseURL = srv.URL

	got, err := u.Search(context.Background(), "minimalist outfit", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotAuth != "Client-ID key123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotQuery != "minimalist outfit" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].ID != "unsplash_abc" || got[0].URL != "https://img/abc" {
		t.Errorf("first candidate = %+v", got[0])
	}
	if got[0].DownloadLocation != "https://api/dl/abc" {
		t.Errorf("download location = %q", got[0].DownloadLocation)
	}
	// regular missing falls back to small.
	if got[1].URL != "https://img/def-s" {
		t.Errorf("fallback URL = %q", got[1].URL)
	}
}

func TestUnsplashUnavailableWithoutKey(t *testing.T) {
	u := NewUnsplash("", testTimeout, nil, logger.NewNop())
	if u.Available() {
		t.Error("provider without key should be unavailable")
	}
	got, err := u.Search(context.Background(), "q", 10)
	if err != nil || got != nil {
		t.Errorf("Search = %v, %v; want nil, nil", got, err)
	}
}

func TestUnsplashServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u := NewUnsplash("key", testTimeout, nil, logger.NewNop())
	u.baseURL = srv.URL
	if _, err := u.Search(context.Background(), "q", 10); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestPexelsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "pexels-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"photos":[
			{"id":42,"photographer":"Ana","src":{"large2x":"https://img/42-2x","medium":"https://img/42-m"}},
			{"id":43,"photographer":"Bo","src":{"medium":"https://img/43-m"}}
		]}`))
	}))
	defer srv.Close()

	p := NewPexels("pexels-key", testTimeout, nil, logger.NewNop())
	p.baseURL = srv.URL

	got, err := p.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].ID != "pexels_42" || got[0].URL != "https://img/42-2x" {
		t.Errorf("first = %+v", got[0])
	}
	// large2x and large missing fall back to medium.
	if got[1].URL != "https://img/43-m" {
		t.Errorf("fallback URL = %q", got[1].URL)
	}
}

func TestFlickrSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "flickr.photos.search" || q.Get("safe_search") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"stat":"ok","photos":{"photo":[
			{"id":"p1","ownername":"Kim","secret":"s1","server":"65535","url_c":"https://live/p1_c.jpg"},
			{"id":"p2","ownername":"Lee","secret":"s2","server":"65535"}
		]}}`))
	}))
	defer srv.Close()

	f := NewFlickr("flickr-key", testTimeout, nil, logger.NewNop())
	f.baseURL = srv.URL

	got, err := f.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].URL != "https://live/p1_c.jpg" {
		t.Errorf("first URL = %q", got[0].URL)
	}
	// No extras URLs: constructed from server/id/secret.
	want := "https://live.staticflickr.com/65535/p2_s2_c.jpg"
	if got[1].URL != want {
		t.Errorf("constructed URL = %q, want %q", got[1].URL, want)
	}
}

func TestFlickrAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stat":"fail","message":"Invalid API Key"}`))
	}))
	defer srv.Close()

	f := NewFlickr("bad-key", testTimeout, nil, logger.NewNop())
	f.baseURL = srv.URL
	if _, err := f.Search(context.Background(), "q", 10); err == nil {
		t.Fatal("expected error for stat=fail")
	}
}

func TestLocalPoolPrefersTagMatches(t *testing.T) {
	pool := `images:
  - id: "one"
    url: "https://img/one"
    tags: ["minimalist", "neutral"]
  - id: "two"
    url: "https://img/two"
    tags: ["romantic", "lace"]
  - id: "three"
    url: "https://img/three"
    tags: ["streetwear"]
`
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte(pool), 0o600); err != nil {
		t.Fatalf("write pool: %v", err)
	}

	l, err := NewLocalPool(path, logger.NewNop())
	if err != nil {
		t.Fatalf("NewLocalPool: %v", err)
	}
	if !l.Available() {
		t.Fatal("loaded pool should be available")
	}

	got, err := l.Search(context.Background(), "romantic dress", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].ID != "local_two" {
		t.Errorf("first = %s, want the tag match", got[0].ID)
	}
	if got[0].SourceProvider != "local" {
		t.Errorf("source = %s", got[0].SourceProvider)
	}
}

func TestLocalPoolEmptyPath(t *testing.T) {
	l, err := NewLocalPool("", logger.NewNop())
	if err != nil {
		t.Fatalf("NewLocalPool: %v", err)
	}
	if l.Available() {
		t.Error("empty pool should be unavailable")
	}
}
