// Package fetch reads landing pages so a headline can be selected from a URL.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// ErrNoTitle is returned when a page has no extractable title.
var ErrNoTitle = errors.New("no title found")

const maxBodyBytes = 5 << 20

// TitleFetcher extracts the headline of a landing page.
type TitleFetcher struct {
	client *http.Client
}

// NewTitleFetcher creates a fetcher with the given request timeout.
func NewTitleFetcher(timeout time.Duration) *TitleFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &TitleFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchTitle downloads pageURL and returns its article title.
func (f *TitleFetcher) FetchTitle(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "headlinestudio/1.0 (landing page reader)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	title := strings.Join(strings.Fields(article.Title), " ")
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}
