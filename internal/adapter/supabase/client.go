// Package supabase persists canonical records through the Supabase
// PostgREST API. The pipeline only ever bulk-inserts and reads back a
// coordinate snapshot; rows are never updated or deleted here.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

// snapshotPageSize matches the PostgREST default row cap; the snapshot
// pages through with Range headers until a short page arrives.
const snapshotPageSize = 1000

// Client talks to one Supabase project table.
type Client struct {
	baseURL    string
	key        string
	table      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a store client. baseURL is the project URL without a
// trailing slash; key is the service-role or anon API key.
func NewClient(baseURL, key, table string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		key:        key,
		table:      table,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) tableURL() string {
	return c.baseURL + "/rest/v1/" + c.table
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
}

// coordRow is the projection used by the snapshot query.
type coordRow struct {
	Latitudine  float64 `json:"latitudine"`
	Longitudine float64 `json:"longitudine"`
}

// Snapshot fetches the coordinates of every stored record, paging through
// PostgREST's row cap. The result seeds the known-points set for
// deduplication.
func (c *Client) Snapshot(ctx context.Context) ([]domain.Geo, error) {
	var points []domain.Geo
	for offset := 0; ; offset += snapshotPageSize {
		page, err := c.snapshotPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			points = append(points, domain.Geo{Lat: r.Latitudine, Lon: r.Longitudine})
		}
		if len(page) < snapshotPageSize {
			return points, nil
		}
	}
}

func (c *Client) snapshotPage(ctx context.Context, offset int) ([]coordRow, error) {
	u := c.tableURL() + "?select=latitudine,longitudine"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}
	c.setAuth(req)
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+snapshotPageSize-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("store snapshot error: status %d: %s", resp.StatusCode, snippet)
	}

	var rows []coordRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode snapshot page: %w", err)
	}
	return rows, nil
}

// row is the store schema for one record.
type row struct {
	Latitudine       float64 `json:"latitudine"`
	Longitudine      float64 `json:"longitudine"`
	Regione          string  `json:"regione"`
	DataInizio       string  `json:"data_inizio"`
	DataOsservazione string  `json:"data_osservazione"`
	Fonte            string  `json:"fonte"`
	Descrizione      string  `json:"descrizione"`
	Costo            string  `json:"costo"`
}

func toRow(rec domain.CanonicalRecord) row {
	return row{
		Latitudine:       rec.Geo.Lat,
		Longitudine:      rec.Geo.Lon,
		Regione:          rec.Region,
		DataInizio:       rec.StartDate,
		DataOsservazione: rec.LastSeen,
		Fonte:            rec.SourceName,
		Descrizione:      rec.Description,
		Costo:            rec.Cost,
	}
}

// InsertChunk bulk-inserts one chunk of records in a single PostgREST
// call. A non-2xx response is an error carrying the status and a body
// snippet so a failed chunk can be diagnosed and replayed.
func (c *Client) InsertChunk(ctx context.Context, records []domain.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = toRow(rec)
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("serialize chunk: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create insert request: %w", err)
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("store insert error: status %d: %s", resp.StatusCode, snippet)
	}

	c.logger.Debug("chunk persisted", "records", len(records))
	return nil
}
