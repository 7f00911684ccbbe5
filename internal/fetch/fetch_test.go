package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const page = `<!DOCTYPE html>
<html><head><title>Americans Are Freaking Out Over This All-New Hyundai Tucson</title></head>
<body><article>
<h1>Americans Are Freaking Out Over This All-New Hyundai Tucson</h1>
<p>The new model year brings a redesigned cabin, a quieter ride and a long list of
driver assistance features that reviewers have been praising for weeks.</p>
<p>Dealers report waiting lists in several states as buyers rush to test drive it.</p>
</article></body></html>`

func TestFetchTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	title, err := NewTitleFetcher(5*time.Second).FetchTitle(context.Background(), srv.URL+"/landing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Americans Are Freaking Out Over This All-New Hyundai Tucson" {
		t.Errorf("unexpected title %q", title)
	}
}

func TestFetchTitleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewTitleFetcher(0).FetchTitle(context.Background(), srv.URL)
	var he *httpError
	if !errors.As(err, &he) || he.code != http.StatusNotFound {
		t.Errorf("expected 404 httpError, got %v", err)
	}
}

func TestFetchTitleInvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com/x", "not a url", "http://"} {
		if _, err := NewTitleFetcher(0).FetchTitle(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}
