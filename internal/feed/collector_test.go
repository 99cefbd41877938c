package feed_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/datewindow"
	"github.com/jonesrussell/tenderwatch/internal/detail"
	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/feed"
	"github.com/jonesrussell/tenderwatch/internal/fetch"
	"github.com/jonesrussell/tenderwatch/internal/logger"
)

const detailHTML = `<html><body>
  <h1>Obras de cubierta (detalle)</h1>
  <p>Expediente OBR/2025/100</p>
  <p>Presupuesto: 1.234,56 €</p>
  <p>CPV: 45261215-4</p>
</body></html>`

const emptyDetailHTML = `<html><body><p>nada que ver</p></body></html>`

// feedXML is an RSS 2.0 feed with one in-window item (with a detail link),
// one out-of-window item, and one undated item.
const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Licitaciones de prueba</title>
  <item>
    <title>Licitación de cubierta</title>
    <link>%[1]s/detail/ok</link>
    <description>Organismo: Ayuntamiento de Prueba&lt;br/&gt;Sin importe en el feed</description>
    <pubDate>Tue, 23 Sep 2025 10:00:00 +0200</pubDate>
  </item>
  <item>
    <title>Licitación antigua 45261215</title>
    <link>%[1]s/detail/empty</link>
    <description>Expediente VIE/2025/1</description>
    <pubDate>Mon, 01 Sep 2025 10:00:00 +0200</pubDate>
  </item>
  <item>
    <title>Licitación sin fecha 45261215</title>
    <link>%[1]s/detail/ok</link>
    <description>no tiene pubDate</description>
  </item>
</channel>
</rss>`

type fixture struct {
	collector *feed.Collector
	server    *httptest.Server
	window    datewindow.Window
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, feedXML, srv.URL)
	})
	mux.HandleFunc("/detail/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailHTML))
	})
	mux.HandleFunc("/detail/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(emptyDetailHTML))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation(datewindow.DefaultLocation)
	require.NoError(t, err)
	window, err := datewindow.Resolve("2025-09-23", loc)
	require.NoError(t, err)

	retry := fetch.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2.0}
	client := fetch.NewClient(time.Second, retry, "tenderwatch-test", logger.NewNoop())

	return &fixture{
		collector: feed.NewCollector(client, detail.NewRegistry(), 0, logger.NewNoop()),
		server:    srv,
		window:    window,
	}
}

func (f *fixture) source(followDetail bool) feed.Source {
	return feed.Source{Name: "prueba", URL: f.server.URL + "/feed.xml", FollowDetail: followDetail}
}

func TestCollectWindowFilter(t *testing.T) {
	f := newFixture(t)

	records, err := f.collector.Collect(context.Background(), f.source(false), feed.Options{Window: f.window})
	require.NoError(t, err)

	// Only the 2025-09-23 item survives: the September 1st item is out of
	// window and the undated item is dropped by policy.
	require.Len(t, records, 1)
	assert.Equal(t, "Licitación de cubierta", records[0].Title)
	assert.Equal(t, "prueba", records[0].Source)
	assert.Equal(t, domain.DetailSkipped, records[0].DetailStatus)
}

func TestCollectBaselineExtraction(t *testing.T) {
	f := newFixture(t)

	records, err := f.collector.Collect(context.Background(), f.source(false), feed.Options{Window: f.window})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Ayuntamiento de Prueba", rec.Authority)
	assert.Empty(t, rec.Amount)
	assert.Empty(t, rec.CPV)
	assert.Equal(t, "2025-09-23T10:00:00+02:00", rec.Published)
	assert.Empty(t, rec.Updated)
}

func TestCollectDetailEnrichment(t *testing.T) {
	f := newFixture(t)

	records, err := f.collector.Collect(context.Background(), f.source(true), feed.Options{Window: f.window})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	// Non-empty detail values overwrite feed values; empty feed amount is
	// replaced by the detail amount.
	assert.Equal(t, "Obras de cubierta (detalle)", rec.Title)
	assert.Equal(t, "OBR/2025/100", rec.CaseID)
	assert.Equal(t, "1.234,56 €", rec.Amount)
	assert.Equal(t, []string{"45261215"}, rec.CPV)
	assert.Equal(t, domain.ProvenanceDetail, rec.AmountSource)
	assert.Equal(t, domain.ProvenanceDetail, rec.CPVSource)
	// The test server host is not a registered portal.
	assert.Equal(t, domain.DetailFallback, rec.DetailStatus)
}

func TestCollectCPVFilterAfterEnrichment(t *testing.T) {
	f := newFixture(t)

	// The feed text carries no CPV; the code only appears on the detail
	// page, so the record passes the filter post-enrichment.
	opts := feed.Options{Window: f.window, CPVTargets: []string{"45261215"}, CPVMode: cpv.ModeExact}
	records, err := f.collector.Collect(context.Background(), f.source(true), opts)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Without enrichment the same filter excludes everything.
	records, err = f.collector.Collect(context.Background(), f.source(false), opts)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollectFeedFetchFailureAbortsSource(t *testing.T) {
	f := newFixture(t)

	src := feed.Source{Name: "caido", URL: f.server.URL + "/no-such-feed"}
	_, err := f.collector.Collect(context.Background(), src, feed.Options{Window: f.window})
	assert.Error(t, err)
}

func TestEnrichFetchFailureDegrades(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, feedXML, srv.URL+"/gone") // detail links now 404
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	loc, err := time.LoadLocation(datewindow.DefaultLocation)
	require.NoError(t, err)
	window, err := datewindow.Resolve("2025-09-23", loc)
	require.NoError(t, err)

	retry := fetch.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2.0}
	client := fetch.NewClient(time.Second, retry, "", logger.NewNoop())
	collector := feed.NewCollector(client, detail.NewRegistry(), 0, logger.NewNoop())

	src := feed.Source{Name: "prueba", URL: srv.URL + "/feed.xml", FollowDetail: true}
	records, err := collector.Collect(context.Background(), src, feed.Options{Window: window})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, domain.DetailFetchFailed, rec.DetailStatus)
	// Feed-derived fields are kept untouched.
	assert.Equal(t, "Licitación de cubierta", rec.Title)
}

func TestMergeKeepsFeedAmountWhenDetailEmpty(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item>
  <title>Con importe en feed</title>
  <link>%s/detail/empty</link>
  <description>Importe: 777,00 €</description>
  <pubDate>Tue, 23 Sep 2025 12:00:00 +0200</pubDate>
</item>
</channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/detail/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(emptyDetailHTML))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	loc, err := time.LoadLocation(datewindow.DefaultLocation)
	require.NoError(t, err)
	window, err := datewindow.Resolve("2025-09-23", loc)
	require.NoError(t, err)

	retry := fetch.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2.0}
	client := fetch.NewClient(time.Second, retry, "", logger.NewNoop())
	collector := feed.NewCollector(client, detail.NewRegistry(), 0, logger.NewNoop())

	src := feed.Source{Name: "prueba", URL: srv.URL + "/feed.xml", FollowDetail: true}
	records, err := collector.Collect(context.Background(), src, feed.Options{Window: window})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "777,00 €", rec.Amount)
	assert.Equal(t, domain.ProvenanceFeed, rec.AmountSource)
	assert.Equal(t, domain.DetailFallback, rec.DetailStatus)
}
