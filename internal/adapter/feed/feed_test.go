package feed

import (
	"context"
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

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Comune di Milano - Viabilità</title>
    <item>
      <title>Lavori in via Padova</title>
      <description>Rifacimento manto stradale, lavori da 500.000 euro</description>
      <pubDate>Mon, 02 Feb 2026 10:00:00 +0100</pubDate>
    </item>
    <item>
      <title>Chiusura notturna viale Monza</title>
      <pubDate>Tue, 03 Feb 2026 08:00:00 +0100</pubDate>
    </item>
    <item>
      <title></title>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Cantieri</title>
  <entry>
    <title>Manutenzione ponte sul Po</title>
    <summary>Intervento strutturale da 2,5 milioni</summary>
    <published>2026-02-05T09:00:00Z</published>
  </entry>
</feed>`

func TestSource_Fetch_RSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	s := New(srv.URL, "Milano", 5*time.Second, testLogger())
	events, err := s.Fetch(context.Background())
	require.NoError(t, err)

	// The empty-title item is skipped.
	require.Len(t, events, 2)

	first := events[0]
	assert.Nil(t, first.Geo, "feed items never carry coordinates")
	assert.Equal(t, "Lavori in via Padova, Milano", first.PositionHint)
	assert.Contains(t, first.Description, "Lavori in via Padova")
	assert.Contains(t, first.Description, "500.000 euro")
	assert.Equal(t, "Mon, 02 Feb 2026 10:00:00 +0100", first.StartDate)
	assert.False(t, first.ObservedAt.IsZero())

	second := events[1]
	assert.Equal(t, "Chiusura notturna viale Monza", second.Description)
	assert.Equal(t, "Chiusura notturna viale Monza, Milano", second.PositionHint)
}

func TestSource_Fetch_Atom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer srv.Close()

	s := New(srv.URL, "", 5*time.Second, testLogger())
	events, err := s.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "Manutenzione ponte sul Po", events[0].PositionHint, "no locality qualifier configured")
	assert.Contains(t, events[0].Description, "2,5 milioni")
	assert.Equal(t, "2026-02-05T09:00:00Z", events[0].StartDate)
}

func TestSource_Name(t *testing.T) {
	s := New("https://comune.milano.it/rss/viabilita", "Milano", time.Second, testLogger())
	assert.Equal(t, "feed:comune.milano.it", s.Name())
}

func TestSource_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", 5*time.Second, testLogger()).Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.FetchUnreachable, fe.Kind)
}

func TestSource_Fetch_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<rss><channel><item><title>unclosed`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", 5*time.Second, testLogger()).Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.FetchUnparseable, fe.Kind)
}
