// Package metadata looks up bibliographic data for a scanned or typed code
// in public book databases.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "BookCatalog/1.0 (https://github.com/mrlokans/bookcatalog)"

// ErrNoMatch is returned by a Source that has no record for the code.
var ErrNoMatch = errors.New("no match")

// BookMetadata is what a source knows about a code.
type BookMetadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Year      string `json:"year,omitempty"`
}

// Source is one external book database.
type Source interface {
	Name() string
	Lookup(ctx context.Context, code string) (*BookMetadata, error)
}

// ClientOption configures the HTTP sources.
type ClientOption func(*httpSource)

// WithBaseURL points the client at another host, typically an httptest server.
func WithBaseURL(u string) ClientOption {
	return func(s *httpSource) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(s *httpSource) { s.httpClient = hc }
}

// WithRateInterval allows one request per interval. Zero disables pacing.
func WithRateInterval(d time.Duration) ClientOption {
	return func(s *httpSource) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type httpSource struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

func newHTTPSource(baseURL string, opts []ClientOption) httpSource {
	s := httpSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *httpSource) getJSON(ctx context.Context, u string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeCode removes hyphens and blanks from a typed or scanned code.
func normalizeCode(code string) string {
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.TrimSpace(code)
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// extractYear returns the first 4-digit run of a free-form date.
func extractYear(date string) string {
	return yearPattern.FindString(date)
}
