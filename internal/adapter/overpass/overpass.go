// Package overpass fetches road-work geometry from the OpenStreetMap
// Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

// SourceName identifies this adapter in canonical records and summaries.
const SourceName = "OpenStreetMap"

// defaultQuery selects construction-tagged nodes and ways in Italy.
// "out center" makes Overpass attach a way-centroid, so every element
// carries a representative point regardless of its geometry.
const defaultQuery = `[out:json][timeout:90];
area["ISO3166-1"="IT"][admin_level=2]->.it;
(
  node["highway"="construction"](area.it);
  way["highway"="construction"](area.it);
  way["construction"]["highway"](area.it);
);
out tags center;`

// Source fetches construction elements from an Overpass endpoint.
type Source struct {
	endpoint   string
	query      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Overpass source against the given interpreter endpoint.
func New(endpoint string, timeout time.Duration, logger *slog.Logger) *Source {
	return &Source{
		endpoint:   endpoint,
		query:      defaultQuery,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the adapter identity.
func (s *Source) Name() string { return SourceName }

// element is one entry of an Overpass response. Nodes carry lat/lon
// directly; ways carry a center because the query requests "out center".
type element struct {
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type response struct {
	Elements []element `json:"elements"`
}

// Fetch posts the Overpass QL query and normalizes each element into a
// RawEvent with coordinates always populated. Any transport or parse
// failure is returned as a typed FetchError; the caller treats it as an
// empty contribution.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawEvent, error) {
	form := url.Values{"data": {s.query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewFetchError(SourceName, domain.FetchUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(SourceName, domain.FetchUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, domain.NewFetchError(SourceName, domain.FetchUnreachable,
			fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, snippet))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.NewFetchError(SourceName, domain.FetchUnparseable,
			fmt.Errorf("decode overpass response: %w", err))
	}

	observedAt := domain.Now()
	events := make([]domain.RawEvent, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		geo, ok := elementPoint(el)
		if !ok {
			continue
		}
		events = append(events, domain.RawEvent{
			Description: elementDescription(el.Tags),
			SourceName:  SourceName,
			Geo:         &geo,
			StartDate:   firstTag(el.Tags, "start_date", "opening_date", "check_date"),
			ObservedAt:  observedAt,
		})
	}

	s.logger.Debug("overpass fetch complete", "elements", len(parsed.Elements), "events", len(events))
	return events, nil
}

// elementPoint extracts the representative point: node coordinates, or the
// way centroid attached by "out center".
func elementPoint(el element) (domain.Geo, bool) {
	g := domain.Geo{Lat: el.Lat, Lon: el.Lon}
	if el.Center != nil {
		g = domain.Geo{Lat: el.Center.Lat, Lon: el.Center.Lon}
	}
	return g, g.Valid()
}

// elementDescription builds free text from the most descriptive tags
// available. The tag values feed cost and region enrichment downstream,
// so richer text is preferred over shorter.
func elementDescription(tags map[string]string) string {
	parts := make([]string, 0, 3)
	if v := firstTag(tags, "description", "note"); v != "" {
		parts = append(parts, v)
	}
	if v := tags["name"]; v != "" {
		parts = append(parts, v)
	}
	if v := tags["construction"]; v != "" && v != "yes" {
		parts = append(parts, "costruzione "+v)
	}
	if len(parts) == 0 {
		return "Lavori stradali segnalati su OpenStreetMap"
	}
	return strings.Join(parts, " - ")
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}
