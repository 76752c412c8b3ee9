// Package pipeline runs the fetch-parse-reconcile-project-publish cycle for
// the configured fire districts.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cfa-fire-forecast/internal/config"
	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/feed"
	"github.com/couchcryptid/cfa-fire-forecast/internal/observability"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

// After this many consecutive combined-feed failures, skip straight to
// per-district feeds each cycle (saves the timeout penalty), retrying the
// combined feed every combinedRetryInterval cycles to auto-recover.
const (
	combinedFailThreshold = 3
	combinedRetryInterval = 10
)

// TextFetcher fetches raw feed text from a URL.
type TextFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Publisher receives each district's projected sensor record. Name
// identifies the sink in logs and the sink error metric.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, record sensor.Record) error
}

// Pipeline polls CFA feeds and publishes per-district sensor records.
// Combined feed first (one request covers all districts); per-district
// feeds as fallback, fetched concurrently with failures isolated per
// district.
type Pipeline struct {
	cfg        *config.Config
	fetcher    TextFetcher
	parser     *feed.Parser
	reconciler *Reconciler
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	cycleCount    int
	combinedFails int
	lastSuccess   map[string]time.Time
	ready         atomic.Bool
}

// New creates a Pipeline.
func New(cfg *config.Config, fetcher TextFetcher, parser *feed.Parser, publishers []Publisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		fetcher:     fetcher,
		parser:      parser,
		reconciler:  NewReconciler(),
		publishers:  publishers,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		lastSuccess: make(map[string]time.Time),
	}
}

// CheckReadiness returns nil once the pipeline has published at least one
// cycle, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a polling cycle yet")
	}
	return nil
}

// Run executes polling cycles until the context is cancelled. The first
// cycle runs immediately; subsequent cycles follow the configured interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"districts", len(p.cfg.Districts),
		"interval", p.cfg.PollInterval,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		p.RunCycle(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-p.clock.After(p.cfg.PollInterval):
		}
	}
}

// RunCycle performs one single-shot poll of all configured districts:
// fetch, parse, reconcile, project, publish. Fetch and parse errors never
// escape; they surface only as per-district health downgrades.
func (p *Pipeline) RunCycle(ctx context.Context) {
	start := time.Now()
	p.cycleCount++

	sets, errs, source := p.collect(ctx)

	for _, slug := range p.cfg.Districts {
		published, health := p.reconciler.Reconcile(slug, sets[slug], errs[slug])
		if health == domain.HealthOK {
			p.lastSuccess[slug] = p.clock.Now()
		} else {
			p.logger.Warn("district cycle degraded",
				"district", slug,
				"health", health,
				"error", errs[slug],
			)
		}
		p.metrics.DistrictHealth.WithLabelValues(slug).Set(healthValue(health))

		cycle := sensor.Cycle{
			Source:        source,
			LastSuccessAt: p.lastSuccess[slug],
		}
		if err := errs[slug]; err != nil {
			cycle.LastError = err.Error()
		}

		record := sensor.Project(p.cfg.SensorPrefix, slug, published, health, cycle)
		p.publish(ctx, record)
	}

	p.metrics.CyclesTotal.Inc()
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
}

// collect fetches fresh forecast sets for every configured district,
// returning per-district results and errors for reconciliation, plus the
// feed strategy that served the cycle ("combined" or "individual").
func (p *Pipeline) collect(ctx context.Context) (map[string]*domain.ForecastSet, map[string]error, string) {
	if sets, err := p.tryCombined(ctx); err == nil {
		return sets, map[string]error{}, "combined"
	}
	sets, errs := p.fetchIndividual(ctx)
	return sets, errs, "individual"
}

// errCombinedSkipped marks cycles where the combined feed was not attempted
// because of a sustained failure streak.
var errCombinedSkipped = errors.New("combined feed skipped during fallback")

// tryCombined attempts the all-districts feed, honouring the sustained
// fallback mode after repeated failures.
func (p *Pipeline) tryCombined(ctx context.Context) (map[string]*domain.ForecastSet, error) {
	if p.combinedFails >= combinedFailThreshold && p.cycleCount%combinedRetryInterval != 0 {
		p.logger.Debug("skipping combined feed",
			"consecutive_failures", p.combinedFails,
		)
		return nil, errCombinedSkipped
	}

	raw, err := p.fetcher.Fetch(ctx, p.cfg.CombinedFeedURL)
	if err != nil {
		p.noteCombinedFailure(err)
		return nil, err
	}

	sets, err := p.parser.ParseCombined(raw, p.cfg.Districts)
	if err != nil {
		p.metrics.ParseErrors.Inc()
		p.noteCombinedFailure(err)
		return nil, err
	}

	if p.combinedFails > 0 {
		p.logger.Info("combined feed recovered", "previous_failures", p.combinedFails)
	}
	p.combinedFails = 0
	p.metrics.CombinedFailStreak.Set(0)
	p.metrics.FeedSource.WithLabelValues("combined").Inc()
	return sets, nil
}

func (p *Pipeline) noteCombinedFailure(err error) {
	p.combinedFails++
	p.metrics.CombinedFailStreak.Set(float64(p.combinedFails))
	var fe *feed.FetchError
	if errors.As(err, &fe) {
		p.metrics.FetchErrors.WithLabelValues(string(fe.Kind)).Inc()
	}
	if p.combinedFails == combinedFailThreshold {
		p.logger.Warn("combined feed entering sustained fallback",
			"consecutive_failures", p.combinedFails,
			"retry_every_cycles", combinedRetryInterval,
			"error", err,
		)
		return
	}
	p.logger.Warn("combined feed failed, falling back to district feeds",
		"consecutive_failures", p.combinedFails,
		"error", err,
	)
}

// fetchIndividual fetches each district's own feed concurrently. A district
// that fails keeps its error; the others proceed.
func (p *Pipeline) fetchIndividual(ctx context.Context) (map[string]*domain.ForecastSet, map[string]error) {
	var (
		mu   sync.Mutex
		sets = make(map[string]*domain.ForecastSet, len(p.cfg.Districts))
		errs = make(map[string]error)
		wg   sync.WaitGroup
	)

	for _, slug := range p.cfg.Districts {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()
			set, err := p.fetchDistrict(ctx, slug)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[slug] = err
				return
			}
			sets[slug] = set
		}(slug)
	}
	wg.Wait()

	p.metrics.FeedSource.WithLabelValues("individual").Inc()
	return sets, errs
}

func (p *Pipeline) fetchDistrict(ctx context.Context, slug string) (*domain.ForecastSet, error) {
	raw, err := p.fetcher.Fetch(ctx, p.cfg.DistrictURL(slug))
	if err != nil {
		var fe *feed.FetchError
		if errors.As(err, &fe) {
			p.metrics.FetchErrors.WithLabelValues(string(fe.Kind)).Inc()
		}
		return nil, err
	}
	set, err := p.parser.ParseDistrict(raw, slug)
	if err != nil {
		p.metrics.ParseErrors.Inc()
		return nil, err
	}
	return set, nil
}

// publish fans the record out to every sink. A failing sink is counted and
// logged but never blocks the others; the record counts as published when
// at least one sink accepted it.
func (p *Pipeline) publish(ctx context.Context, record sensor.Record) {
	accepted := false
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, record); err != nil {
			p.metrics.SinkErrors.WithLabelValues(pub.Name()).Inc()
			p.logger.Error("publish failed",
				"sink", pub.Name(),
				"district", record.DistrictSlug,
				"error", err,
			)
			continue
		}
		accepted = true
	}
	if accepted {
		p.metrics.RecordsPublished.Inc()
	}
}

func healthValue(h domain.FeedHealth) float64 {
	switch h {
	case domain.HealthOK:
		return 0
	case domain.HealthDegraded:
		return 1
	default:
		return 2
	}
}
