package scys

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (compatible; scys-collector/1.0)"
)

// ErrNotScysPage is returned by Collect for pages outside the site.
var ErrNotScysPage = errors.New("scys: page is not on scys.com")

// Fetcher downloads pages for extraction.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	// Cookie is sent verbatim; member-only posts need a logged-in session.
	Cookie string
}

// NewFetcher returns a Fetcher with the given overall request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

// Fetch GETs pageURL and parses the body. Non-2xx statuses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "scys: build page request")
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c := strings.TrimSpace(f.Cookie); c != "" {
		req.Header.Set("Cookie", c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "scys: fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scys: fetch page: http status %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "scys: parse page html")
	}
	return doc, nil
}

// Collect fetches and extracts pageURL. On any failure it still returns
// BasicInfo for the URL together with the error, so callers can carry on
// with minimal data.
func (f *Fetcher) Collect(ctx context.Context, pageURL string) (PageInfo, error) {
	if !IsScysURL(pageURL) {
		return BasicInfo(pageURL, ""), ErrNotScysPage
	}
	doc, err := f.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("scys: falling back to basic info")
		return BasicInfo(pageURL, ""), err
	}
	return Extract(doc, pageURL), nil
}
