package domain

import (
	"time"
	"unicode/utf8"
)

// MaxDescriptionRunes is the store column limit for descriptions.
const MaxDescriptionRunes = 250

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the pair lies in the WGS-84 coordinate range.
// A (0,0) pair is treated as invalid: it is the null island artifact of
// sources that emit zeroes instead of omitting missing geometry.
func (g Geo) Valid() bool {
	if g.Lat == 0 && g.Lon == 0 {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// RawEvent is a road-work observation as emitted by a single source
// adapter, before coordinate resolution.
type RawEvent struct {
	Description string
	SourceName  string
	// Geo is nil for text-only sources; such events carry a PositionHint
	// instead and must be resolved before they can be deduplicated.
	Geo          *Geo
	PositionHint string
	// StartDate is the raw source token; formats vary per source and the
	// value is normalized only when building the canonical record.
	StartDate  string
	ObservedAt time.Time
}

// ResolvedEvent is a RawEvent guaranteed to carry coordinates.
type ResolvedEvent struct {
	RawEvent
	Geo Geo
}

// CanonicalRecord is the final enriched record eligible for persistence.
type CanonicalRecord struct {
	Geo         Geo
	Region      string // province code, or RegionUnknown
	StartDate   string // YYYY-MM-DD
	LastSeen    string // YYYY-MM-DD of the observing run
	SourceName  string
	Description string
	Cost        string // verbatim monetary mention, or CostUnknown
}

// ChunkError records a failed store commit for one chunk. The records are
// retained so the failure report identifies exactly what needs manual replay.
type ChunkError struct {
	Index   int
	Records []CanonicalRecord
	Err     error
}

func (e ChunkError) Error() string {
	return e.Err.Error()
}

// RunSummary reports the outcome of one pipeline run.
type RunSummary struct {
	Fetched           int
	Resolved          int
	DroppedUnresolved int
	DeduplicatedOut   int
	Persisted         int

	// SnapshotDegraded is set when the existing-points snapshot could not
	// be fetched and the run proceeded against an empty known-set.
	SnapshotDegraded bool
	SourceFailures   []*FetchError
	ChunkErrors      []ChunkError
}

// TruncateDescription caps free text at the store column limit, counting
// runes rather than bytes so multi-byte characters are never split.
func TruncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= MaxDescriptionRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxDescriptionRunes])
}
