// Package opendata fetches road-work features from open-data portals
// publishing GeoJSON FeatureCollections.
package opendata

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

// descriptionKeys is the ordered candidate list for the free-text field of
// a feature. Portals disagree on naming; the first non-empty wins.
var descriptionKeys = []string{"descrizione", "description", "titolo", "title", "name", "denominazione", "oggetto"}

// startDateKeys is the ordered candidate list for the work start date.
var startDateKeys = []string{"data_inizio", "dataInizio", "inizio", "start_date", "data"}

// Source fetches one GeoJSON dataset URL.
type Source struct {
	name       string
	datasetURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a GeoJSON open-data source for a single dataset URL.
func New(datasetURL string, timeout time.Duration, logger *slog.Logger) *Source {
	return &Source{
		name:       sourceName(datasetURL),
		datasetURL: datasetURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the adapter identity, derived from the dataset host.
func (s *Source) Name() string { return s.name }

func sourceName(datasetURL string) string {
	if u, err := url.Parse(datasetURL); err == nil && u.Host != "" {
		return "geojson:" + u.Host
	}
	return "geojson:" + datasetURL
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Fetch downloads the FeatureCollection and normalizes each feature into a
// RawEvent with coordinates always populated. Features whose geometry
// cannot yield a representative point are skipped individually.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.datasetURL, nil)
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
			fmt.Errorf("open-data error: status %d: %s", resp.StatusCode, snippet))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, domain.NewFetchError(s.name, domain.FetchUnparseable,
			fmt.Errorf("decode geojson: %w", err))
	}

	observedAt := domain.Now()
	events := make([]domain.RawEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		geo, ok := representativePoint(f.Geometry.Type, f.Geometry.Coordinates)
		if !ok {
			continue
		}
		events = append(events, domain.RawEvent{
			Description: firstProperty(f.Properties, descriptionKeys),
			SourceName:  s.name,
			Geo:         &geo,
			StartDate:   firstProperty(f.Properties, startDateKeys),
			ObservedAt:  observedAt,
		})
	}

	s.logger.Debug("geojson fetch complete", "dataset", s.name, "features", len(fc.Features), "events", len(events))
	return events, nil
}

// representativePoint reduces a GeoJSON geometry to one point: the point
// itself, or the first vertex of a (Multi)LineString. GeoJSON positions
// are (lon, lat); the inversion to (lat, lon) happens exactly here.
func representativePoint(geomType string, coords json.RawMessage) (domain.Geo, bool) {
	var position []float64

	switch geomType {
	case "Point":
		if err := json.Unmarshal(coords, &position); err != nil {
			return domain.Geo{}, false
		}
	case "LineString":
		var line [][]float64
		if err := json.Unmarshal(coords, &line); err != nil || len(line) == 0 {
			return domain.Geo{}, false
		}
		position = line[0]
	case "MultiLineString":
		var multi [][][]float64
		if err := json.Unmarshal(coords, &multi); err != nil || len(multi) == 0 || len(multi[0]) == 0 {
			return domain.Geo{}, false
		}
		position = multi[0][0]
	default:
		return domain.Geo{}, false
	}

	if len(position) < 2 {
		return domain.Geo{}, false
	}
	g := domain.Geo{Lat: position[1], Lon: position[0]}
	return g, g.Valid()
}

// firstProperty returns the first non-empty string value among the
// candidate keys. Non-string values are ignored.
func firstProperty(props map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
