package opendata

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveGeoJSON(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, testLogger())
}

const pointFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [12.4922, 41.8902]},
      "properties": {"descrizione": "Cantiere via Appia", "data_inizio": "2026-01-15"}
    }
  ]
}`

func TestSource_Fetch_PointCoordinateOrder(t *testing.T) {
	s := serveGeoJSON(t, pointFixture)

	events, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	// GeoJSON stores (lon, lat); the event must come out (lat, lon).
	require.NotNil(t, events[0].Geo)
	assert.Equal(t, 41.8902, events[0].Geo.Lat)
	assert.Equal(t, 12.4922, events[0].Geo.Lon)
	assert.Equal(t, "Cantiere via Appia", events[0].Description)
	assert.Equal(t, "2026-01-15", events[0].StartDate)
}

func TestSource_Fetch_LineStringUsesFirstVertex(t *testing.T) {
	s := serveGeoJSON(t, `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "geometry": {"type": "LineString", "coordinates": [[9.19, 45.46], [9.20, 45.47]]},
	      "properties": {"title": "Asfaltatura SP14"}
	    },
	    {
	      "geometry": {"type": "MultiLineString", "coordinates": [[[11.25, 43.77], [11.26, 43.78]]]},
	      "properties": {"denominazione": "Lavori lungarno"}
	    }
	  ]
	}`)

	events, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.Geo{Lat: 45.46, Lon: 9.19}, *events[0].Geo)
	assert.Equal(t, "Asfaltatura SP14", events[0].Description)
	assert.Equal(t, domain.Geo{Lat: 43.77, Lon: 11.25}, *events[1].Geo)
	assert.Equal(t, "Lavori lungarno", events[1].Description)
}

func TestSource_Fetch_SkipsUnsupportedGeometry(t *testing.T) {
	s := serveGeoJSON(t, `{
	  "type": "FeatureCollection",
	  "features": [
	    {"geometry": {"type": "Polygon", "coordinates": [[[1,2],[3,4],[5,6],[1,2]]]}, "properties": {}},
	    {"geometry": {"type": "Point", "coordinates": [9.19, 45.46]}, "properties": {"name": "ok"}}
	  ]
	}`)

	events, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Description)
}

func TestSource_Fetch_DescriptionCandidateOrder(t *testing.T) {
	props := map[string]any{
		"title":       "less preferred",
		"descrizione": "preferred",
		"count":       12, // non-string values are ignored
	}
	raw, err := json.Marshal(map[string]any{
		"type": "FeatureCollection",
		"features": []map[string]any{
			{
				"geometry":   map[string]any{"type": "Point", "coordinates": []float64{9.19, 45.46}},
				"properties": props,
			},
		},
	})
	require.NoError(t, err)

	s := serveGeoJSON(t, string(raw))
	events, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "preferred", events[0].Description)
}

func TestSource_Fetch_MalformedBody(t *testing.T) {
	s := serveGeoJSON(t, `{"features": [`)

	_, err := s.Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.FetchUnparseable, fe.Kind)
}

func TestSource_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 5*time.Second, testLogger()).Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.FetchUnreachable, fe.Kind)
	assert.Contains(t, fe.Source, "geojson:")
}
