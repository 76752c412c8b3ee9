package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cfa-fire-forecast/internal/config"
	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/feed"
	"github.com/couchcryptid/cfa-fire-forecast/internal/observability"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

const (
	combinedURL = "https://feeds.test/combined.xml"
	districtURL = "https://feeds.test/{slug}.xml"
)

// stubFetcher serves canned responses keyed by URL and records every request.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	if err, ok := s.errs[url]; ok {
		return "", err
	}
	if raw, ok := s.responses[url]; ok {
		return raw, nil
	}
	return "", &feed.FetchError{Kind: feed.FetchHTTP, Status: 404, URL: url}
}

func (s *stubFetcher) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == url {
			n++
		}
	}
	return n
}

// capturePublisher collects published records in order.
type capturePublisher struct {
	mu      sync.Mutex
	records []sensor.Record
}

func (c *capturePublisher) Name() string { return "capture" }

func (c *capturePublisher) Publish(_ context.Context, record sensor.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return nil
}

func (c *capturePublisher) bySlug() map[string]sensor.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]sensor.Record, len(c.records))
	for _, r := range c.records {
		out[r.DistrictSlug] = r
	}
	return out
}

func (c *capturePublisher) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

// failingPublisher rejects every record.
type failingPublisher struct{}

func (failingPublisher) Name() string { return "broken" }

func (failingPublisher) Publish(context.Context, sensor.Record) error {
	return errors.New("sink unavailable")
}

func combinedFeedXML(malleeRating, wimmeraRating string) string {
	item := func(title string) string {
		return fmt.Sprintf(
			`<item><title>%s</title><description><![CDATA[<p>Mallee: %s</p><p>Wimmera: %s</p>`+
				`<p>Today is not currently a day of Total Fire Ban.</p>]]></description></item>`,
			title, malleeRating, wimmeraRating,
		)
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel>` +
		`<title>Combined</title><pubDate>Mon, 12 Jan 2026 17:30:00 +1100</pubDate>` +
		item("Today, Tuesday, 13 January 2026") +
		item("Tomorrow, Wednesday, 14 January 2026") +
		`</channel></rss>`
}

func districtFeedXML(district, rating string) string {
	return fmt.Sprintf(
		`<?xml version="1.0"?><rss version="2.0"><channel><title>%s</title>`+
			`<item><title>Today, Tuesday, 13 January 2026</title>`+
			`<description><![CDATA[<p>%s: %s</p>`+
			`<p>Today is not currently a day of Total Fire Ban.</p>]]></description></item>`+
			`</channel></rss>`,
		district, district, rating,
	)
}

func testConfig() *config.Config {
	return &config.Config{
		Districts:       []string{"mallee", "wimmera"},
		PollInterval:    time.Hour,
		CombinedFeedURL: combinedURL,
		DistrictFeedURL: districtURL,
		SensorPrefix:    "cfa",
	}
}

func newTestPipeline(fetcher TextFetcher, pubs ...Publisher) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		testConfig(),
		fetcher,
		feed.NewParser(),
		pubs,
		logger,
		observability.NewMetricsForTesting(),
		clockwork.NewFakeClock(),
	)
}

func TestRunCycle_CombinedFeed(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "MODERATE")},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())

	records := pub.bySlug()
	require.Len(t, records, 2)

	mallee := records["mallee"]
	assert.Equal(t, domain.HealthOK, mallee.Health)
	rating, ok := mallee.Reading(sensor.RatingName("cfa", "mallee", 0))
	require.True(t, ok)
	assert.Equal(t, "HIGH", rating.State)

	wimmera := records["wimmera"]
	rating, ok = wimmera.Reading(sensor.RatingName("cfa", "wimmera", 0))
	require.True(t, ok)
	assert.Equal(t, "MODERATE", rating.State)

	// One combined request, no per-district requests.
	assert.Equal(t, 1, fetcher.callCount(combinedURL))
	assert.Equal(t, 0, fetcher.callCount("https://feeds.test/mallee.xml"))
}

func TestRunCycle_FallsBackToDistrictFeeds(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{
			combinedURL: &feed.FetchError{Kind: feed.FetchTimeout, URL: combinedURL, Err: context.DeadlineExceeded},
		},
		responses: map[string]string{
			"https://feeds.test/mallee.xml":  districtFeedXML("Mallee", "EXTREME"),
			"https://feeds.test/wimmera.xml": districtFeedXML("Wimmera", "HIGH"),
		},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())

	records := pub.bySlug()
	require.Len(t, records, 2)
	assert.Equal(t, domain.HealthOK, records["mallee"].Health)
	assert.Equal(t, domain.HealthOK, records["wimmera"].Health)

	mallee := records["mallee"]
	rating, ok := mallee.Reading(sensor.RatingName("cfa", "mallee", 0))
	require.True(t, ok)
	assert.Equal(t, "EXTREME", rating.State)

	assert.Equal(t, 1, fetcher.callCount("https://feeds.test/mallee.xml"))
	assert.Equal(t, 1, fetcher.callCount("https://feeds.test/wimmera.xml"))
}

func TestRunCycle_DistrictFailureIsIsolated(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{
			combinedURL:                     errors.New("combined down"),
			"https://feeds.test/mallee.xml": &feed.FetchError{Kind: feed.FetchHTTP, Status: 500, URL: "https://feeds.test/mallee.xml"},
		},
		responses: map[string]string{
			"https://feeds.test/wimmera.xml": districtFeedXML("Wimmera", "HIGH"),
		},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())

	records := pub.bySlug()
	require.Len(t, records, 2, "a failed district still publishes a record")

	assert.Equal(t, domain.HealthFailed, records["mallee"].Health)
	mallee := records["mallee"]
	rating, ok := mallee.Reading(sensor.RatingName("cfa", "mallee", 0))
	require.True(t, ok)
	assert.Equal(t, domain.UnknownLabel, rating.State)

	assert.Equal(t, domain.HealthOK, records["wimmera"].Health)
}

func TestRunCycle_DegradedRepublishesRetained(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("CATASTROPHIC", "HIGH")},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())
	pub.reset()

	// Everything fails on the next cycle.
	fetcher.mu.Lock()
	fetcher.responses = nil
	fetcher.errs = map[string]error{}
	fetcher.mu.Unlock()

	p.RunCycle(context.Background())

	records := pub.bySlug()
	require.Len(t, records, 2)

	mallee := records["mallee"]
	assert.Equal(t, domain.HealthDegraded, mallee.Health)
	rating, ok := mallee.Reading(sensor.RatingName("cfa", "mallee", 0))
	require.True(t, ok)
	assert.Equal(t, "CATASTROPHIC", rating.State, "degraded cycles keep the retained forecast")

	status, ok := mallee.Reading(sensor.FeedStatusName("cfa", "mallee"))
	require.True(t, ok)
	assert.Equal(t, string(domain.HealthDegraded), status.State)
}

func TestRunCycle_SustainedFallbackSkipsCombined(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{combinedURL: errors.New("combined down")},
		responses: map[string]string{
			"https://feeds.test/mallee.xml":  districtFeedXML("Mallee", "HIGH"),
			"https://feeds.test/wimmera.xml": districtFeedXML("Wimmera", "HIGH"),
		},
	}
	p := newTestPipeline(fetcher, &capturePublisher{})

	for i := 0; i < 10; i++ {
		p.RunCycle(context.Background())
	}

	// Attempted on cycles 1-3, then skipped until the retry cycle (10).
	assert.Equal(t, combinedFailThreshold+1, fetcher.callCount(combinedURL))
	assert.Equal(t, 10, fetcher.callCount("https://feeds.test/mallee.xml"))
}

func TestRunCycle_CombinedRecoveryResetsStreak(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{combinedURL: errors.New("combined down")},
		responses: map[string]string{
			"https://feeds.test/mallee.xml":  districtFeedXML("Mallee", "HIGH"),
			"https://feeds.test/wimmera.xml": districtFeedXML("Wimmera", "HIGH"),
		},
	}
	p := newTestPipeline(fetcher, &capturePublisher{})

	p.RunCycle(context.Background())
	p.RunCycle(context.Background())

	// Combined comes back before the sustained-fallback threshold.
	fetcher.mu.Lock()
	fetcher.errs = nil
	fetcher.responses[combinedURL] = combinedFeedXML("HIGH", "HIGH")
	fetcher.mu.Unlock()

	p.RunCycle(context.Background())
	assert.Equal(t, 0, p.combinedFails)

	p.RunCycle(context.Background())
	assert.Equal(t, 4, fetcher.callCount(combinedURL), "combined is attempted every cycle once recovered")
}

func TestRunCycle_CombinedParseFailureFallsBack(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{
			combinedURL:                      "<html>maintenance page</html>",
			"https://feeds.test/mallee.xml":  districtFeedXML("Mallee", "MODERATE"),
			"https://feeds.test/wimmera.xml": districtFeedXML("Wimmera", "MODERATE"),
		},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())

	records := pub.bySlug()
	require.Len(t, records, 2)
	assert.Equal(t, domain.HealthOK, records["mallee"].Health)
	assert.Equal(t, 1, p.combinedFails)
}

func TestRunCycle_SinkErrorsCounted(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "HIGH")},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, failingPublisher{}, pub)

	p.RunCycle(context.Background())

	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.SinkErrors.WithLabelValues("broken")),
		"one sink error per district record")
	assert.Equal(t, float64(0), testutil.ToFloat64(p.metrics.SinkErrors.WithLabelValues("capture")))

	// The records still count as published: the healthy sink accepted them.
	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.RecordsPublished))
	assert.Len(t, pub.bySlug(), 2)
}

func TestRunCycle_NoSinkAcceptedNotCountedAsPublished(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "HIGH")},
	}
	p := newTestPipeline(fetcher, failingPublisher{})

	p.RunCycle(context.Background())

	assert.Equal(t, float64(0), testutil.ToFloat64(p.metrics.RecordsPublished))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.SinkErrors.WithLabelValues("broken")))
}

func TestRunCycle_FeedStatusDiagnostics(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "HIGH")},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	p.RunCycle(context.Background())

	mallee := pub.bySlug()["mallee"]
	status, ok := mallee.Reading(sensor.FeedStatusName("cfa", "mallee"))
	require.True(t, ok)
	assert.Equal(t, "ok", status.State)
	assert.Equal(t, "combined", status.Attributes["source"])
	assert.NotEmpty(t, status.Attributes["last_successful_update"])
	assert.NotContains(t, status.Attributes, "last_error")

	// Everything fails: diagnostics explain the degraded state.
	fetcher.mu.Lock()
	fetcher.responses = nil
	fetcher.mu.Unlock()
	pub.reset()

	p.RunCycle(context.Background())

	mallee = pub.bySlug()["mallee"]
	status, ok = mallee.Reading(sensor.FeedStatusName("cfa", "mallee"))
	require.True(t, ok)
	assert.Equal(t, "degraded", status.State)
	assert.Equal(t, "individual", status.Attributes["source"], "the cycle fell back to district feeds")
	assert.Contains(t, status.Attributes["last_error"], "HTTP 404")
	assert.NotEmpty(t, status.Attributes["last_successful_update"],
		"the healthy cycle's timestamp survives failed cycles")
}

func TestCheckReadiness(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "HIGH")},
	}
	p := newTestPipeline(fetcher, &capturePublisher{})

	require.Error(t, p.CheckReadiness(context.Background()))

	p.RunCycle(context.Background())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	fetcher := &stubFetcher{
		responses: map[string]string{combinedURL: combinedFeedXML("HIGH", "HIGH")},
	}
	pub := &capturePublisher{}
	p := newTestPipeline(fetcher, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// The first cycle runs immediately; cancel once it has published.
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.records) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after context cancellation")
	}
}
