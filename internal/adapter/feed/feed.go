// Package feed fetches road-work announcements from RSS and Atom feeds,
// typically municipal press offices. Feed items are text-only: they never
// carry coordinates and rely on the geocoding resolver downstream.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

// Source fetches one syndication feed. Each configured feed URL gets its
// own Source so failures stay isolated per feed.
type Source struct {
	name       string
	feedURL    string
	locality   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a feed source. locality, when non-empty, qualifies each
// item's position hint ("<title>, <locality>") to keep the geocoder from
// matching homonymous places abroad.
func New(feedURL, locality string, timeout time.Duration, logger *slog.Logger) *Source {
	return &Source{
		name:       sourceName(feedURL),
		feedURL:    feedURL,
		locality:   locality,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the adapter identity, derived from the feed host.
func (s *Source) Name() string { return s.name }

func sourceName(feedURL string) string {
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return "feed:" + u.Host
	}
	return "feed:" + feedURL
}

// document matches both RSS (<rss><channel><item>…) and Atom
// (<feed><entry>…) layouts; xml.Unmarshal ignores the root element name.
type document struct {
	Items   []item `xml:"channel>item"`
	Entries []item `xml:"entry"`
}

type item struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Summary     string `xml:"summary"`
	PubDate     string `xml:"pubDate"`
	Published   string `xml:"published"`
	Updated     string `xml:"updated"`
}

// Fetch downloads and parses the feed, producing one coordinate-less
// RawEvent per item.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(s.name, domain.FetchUnreachable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(s.name, domain.FetchUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, domain.NewFetchError(s.name, domain.FetchUnreachable,
			fmt.Errorf("feed error: status %d: %s", resp.StatusCode, snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFetchError(s.name, domain.FetchUnreachable, err)
	}

	var doc document
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, domain.NewFetchError(s.name, domain.FetchUnparseable,
			fmt.Errorf("parse feed: %w", err))
	}

	items := doc.Items
	if len(items) == 0 {
		items = doc.Entries
	}

	observedAt := domain.Now()
	events := make([]domain.RawEvent, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		events = append(events, domain.RawEvent{
			Description:  itemDescription(title, it),
			SourceName:   s.name,
			PositionHint: s.positionHint(title),
			StartDate:    firstNonEmpty(it.PubDate, it.Published, it.Updated),
			ObservedAt:   observedAt,
		})
	}

	s.logger.Debug("feed fetch complete", "feed", s.name, "items", len(items), "events", len(events))
	return events, nil
}

// itemDescription joins title and summary text; the summary often carries
// the cost mention that the title omits.
func itemDescription(title string, it item) string {
	summary := strings.TrimSpace(firstNonEmpty(it.Description, it.Summary))
	if summary == "" || summary == title {
		return title
	}
	return title + ". " + summary
}

func (s *Source) positionHint(title string) string {
	if s.locality == "" {
		return title
	}
	return title + ", " + s.locality
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
