package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// --- mock reverse geocoder ---

type mockReverse struct {
	addr  *Address
	err   error
	calls int
}

func (m *mockReverse) Reverse(_ context.Context, _ Geo) (*Address, error) {
	m.calls++
	return m.addr, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- region extraction ---

func TestExtractRegion_ProvinceNameInText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Rifacimento manto stradale in via Torino, Milano", "MI"},
		{"lavori notturni a ROMA, tratto urbano", "RM"},
		{"Cantiere Reggio Emilia via Emilia Ovest", "RE"},
		{"manutenzione ponte, L'Aquila", "AQ"},
		{"Chiusura corsia A4 direzione Venezia", "VE"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ExtractRegion(context.Background(), tt.text, duomoMilano, nil, discardLogger())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractRegion_BareCodeInText(t *testing.T) {
	got := ExtractRegion(context.Background(), "Strada statale 36, tratto MI nord, senso unico alternato", Geo{Lat: 45.8, Lon: 9.4}, nil, discardLogger())
	assert.Equal(t, "MI", got)
}

func TestExtractRegion_LowercaseCodeIgnored(t *testing.T) {
	// "mi" is an Italian pronoun, not a province code.
	got := ExtractRegion(context.Background(), "il cantiere mi costringe a deviare", Geo{Lat: 45.8, Lon: 9.4}, nil, discardLogger())
	assert.Equal(t, RegionUnknown, got)
}

func TestExtractRegion_ReverseGeocodeFallback(t *testing.T) {
	rev := &mockReverse{addr: &Address{Province: "Milano", County: "Roma"}}

	got := ExtractRegion(context.Background(), "rifacimento asfalto senza indicazioni", duomoMilano, rev, discardLogger())

	// Province outranks county.
	assert.Equal(t, "MI", got)
	assert.Equal(t, 1, rev.calls)
}

func TestExtractRegion_ReverseFallbackCityOnly(t *testing.T) {
	rev := &mockReverse{addr: &Address{City: "Bergamo"}}

	got := ExtractRegion(context.Background(), "chiusura temporanea", Geo{Lat: 45.69, Lon: 9.67}, rev, discardLogger())
	assert.Equal(t, "BG", got)
}

func TestExtractRegion_Unknown(t *testing.T) {
	tests := []struct {
		name string
		rev  *mockReverse
	}{
		{"no reverse geocoder", nil},
		{"reverse error", &mockReverse{err: errors.New("timeout")}},
		{"reverse no match", &mockReverse{}},
		{"reverse unrecognized components", &mockReverse{addr: &Address{Province: "Bavaria", City: "Munich"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rev ReverseGeocoder
			if tt.rev != nil {
				rev = tt.rev
			}
			got := ExtractRegion(context.Background(), "lavori in corso", Geo{Lat: 48.1, Lon: 11.6}, rev, discardLogger())
			assert.Equal(t, RegionUnknown, got)
		})
	}
}

func TestExtractRegion_TextMatchSkipsReverseCall(t *testing.T) {
	rev := &mockReverse{addr: &Address{Province: "Torino"}}

	got := ExtractRegion(context.Background(), "viabilità modificata a Napoli", Geo{}, rev, discardLogger())

	assert.Equal(t, "NA", got)
	assert.Zero(t, rev.calls, "text match must not spend a geocoder call")
}

// --- cost extraction ---

func TestExtractCost(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"millions with decimal comma", "lavori da 2,5 milioni di euro", "2,5 milioni"},
		{"euro symbol", "intervento da 500.000 € sulla SP12", "500.000 €"},
		{"euro word", "appalto da 750.000 euro", "750.000 euro"},
		{"mln abbreviation", "finanziamento di 3 mln per il viadotto", "3 mln"},
		{"unseparated amount", "affidati lavori per 25000 euro", "25000 euro"},
		{"unseparated with symbol", "stanziati 1500 € per la segnaletica", "1500 €"},
		{"single million", "opera da 1 milione", "1 milione"},
		{"no cost", "chiusura al traffico per lavori notturni", CostUnknown},
		{"number without marker", "corsia ridotta per 300 metri", CostUnknown},
		{"empty", "", CostUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCost(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCost_MillionsMention(t *testing.T) {
	got := ExtractCost("lavori da 2,5 milioni")
	assert.NotEqual(t, CostUnknown, got)
	assert.Contains(t, got, "2,5")
	assert.Contains(t, got, "milioni")
}

// --- start date normalization ---

func TestNormalizeStartDate(t *testing.T) {
	fallback := time.Date(2026, time.March, 14, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"iso date", "2026-02-01", "2026-02-01"},
		{"rfc3339", "2026-02-01T06:00:00Z", "2026-02-01"},
		{"italian day first", "01/02/2026", "2026-02-01"},
		{"dashed day first", "01-02-2026", "2026-02-01"},
		{"feed pubdate", "Mon, 02 Feb 2026 10:00:00 +0100", "2026-02-02"},
		{"unparseable", "inizio lavori primavera", "2026-03-14"},
		{"empty", "", "2026-03-14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStartDate(tt.raw, fallback))
		})
	}
}

// --- truncation ---

func TestTruncateDescription(t *testing.T) {
	short := "lavori in corso"
	assert.Equal(t, short, TruncateDescription(short))

	long := strings.Repeat("a", 300)
	got := TruncateDescription(long)
	assert.Len(t, got, MaxDescriptionRunes)

	// Multi-byte runes are counted as single characters, never split.
	accented := strings.Repeat("à", 300)
	got = TruncateDescription(accented)
	assert.Equal(t, MaxDescriptionRunes, len([]rune(got)))
	assert.True(t, strings.HasPrefix(accented, got))
}

// --- record building ---

func TestBuildRecord(t *testing.T) {
	observed := time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC)
	ev := ResolvedEvent{
		RawEvent: RawEvent{
			Description: "Rifacimento manto stradale a Milano, lavori da 2,5 milioni di euro",
			SourceName:  "ComuneFeed",
			StartDate:   "01/04/2026",
			ObservedAt:  observed,
		},
		Geo: duomoMilano,
	}

	rec := BuildRecord(context.Background(), ev, nil, discardLogger())

	assert.Equal(t, duomoMilano, rec.Geo)
	assert.Equal(t, "MI", rec.Region)
	assert.Equal(t, "2026-04-01", rec.StartDate)
	assert.Equal(t, "2026-03-14", rec.LastSeen)
	assert.Equal(t, "ComuneFeed", rec.SourceName)
	assert.Equal(t, "2,5 milioni", rec.Cost)
	assert.Equal(t, ev.Description, rec.Description)
}
