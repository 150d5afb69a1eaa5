package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/citypulse/internal/alert"
	"github.com/linnemanlabs/citypulse/internal/classify"
	"github.com/linnemanlabs/citypulse/internal/signal"
)

// DefaultCollectTimeout bounds each collector invocation so a hanging
// source cannot stall the cycle beyond its own budget.
const DefaultCollectTimeout = 60 * time.Second

// Notifier receives alerts routed to the urgent tier.
type Notifier interface {
	Notify(ctx context.Context, a *alert.Alert) error
}

// Orchestrator owns one triage cycle end to end. It holds no cross-cycle
// mutable state; the scheduling caller serializes cycles.
type Orchestrator struct {
	registry       *signal.Registry
	classifier     classify.Classifier
	store          alert.Store
	notifier       Notifier
	logger         log.Logger
	metrics        *Metrics
	collectTimeout time.Duration
	tiers          alert.Thresholds
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithCollectTimeout overrides the per-collector timeout.
func WithCollectTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.collectTimeout = d }
}

// WithNotifier routes urgent-tier alerts to the given notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithTierThresholds overrides the severity cut points for routing.
func WithTierThresholds(t alert.Thresholds) Option {
	return func(o *Orchestrator) { o.tiers = t }
}

// NewOrchestrator wires the pipeline dependencies. It fails only when no
// collectors are configured; everything after construction is recorded in
// the cycle report instead of returned as an error.
func NewOrchestrator(registry *signal.Registry, classifier classify.Classifier, store alert.Store, logger log.Logger, metrics *Metrics, opts ...Option) (*Orchestrator, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("pipeline: no collectors configured")
	}
	if classifier == nil {
		return nil, fmt.Errorf("pipeline: classifier is required")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline: alert store is required")
	}
	if logger == nil {
		logger = log.Nop()
	}

	o := &Orchestrator{
		registry:       registry,
		classifier:     classifier,
		store:          store,
		logger:         logger,
		metrics:        metrics,
		collectTimeout: DefaultCollectTimeout,
		tiers:          alert.DefaultThresholds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunCycle executes one collect -> classify -> store cycle and always
// returns a report. Failures along the way land in the report's error
// list; nothing short of a broken context aborts the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) *Report {
	start := time.Now()
	errs := &errorList{}

	report := &Report{
		StartTime:      start.UTC(),
		CollectorsUsed: o.registry.Len(),
	}

	L := o.logger.With("cycle_start", start.UTC().Format(time.RFC3339))
	L.Info(ctx, "cycle phase", "phase", PhaseCollecting)

	bySource := o.collect(ctx, L, errs)
	for _, signals := range bySource {
		report.SignalsCollected += len(signals)
	}
	o.metrics.ObserveSignals(report.SignalsCollected)

	// "No news" is a normal outcome, not a failure.
	if report.SignalsCollected == 0 {
		L.Info(ctx, "no signals collected, skipping classification")
		return o.finalize(ctx, L, report, errs, start)
	}

	L.Info(ctx, "cycle phase", "phase", PhaseClassifying, "signals", report.SignalsCollected)

	result := o.classify(ctx, L, bySource, errs)
	if result == nil || len(result.Alerts) == 0 {
		return o.finalize(ctx, L, report, errs, start)
	}
	report.AlertsGenerated = len(result.Alerts)

	L.Info(ctx, "cycle phase", "phase", PhaseStoring, "alerts", report.AlertsGenerated)

	report.AlertsStored = o.storeAlerts(ctx, L, result.Alerts, errs)

	return o.finalize(ctx, L, report, errs, start)
}

// collect fans out to every registered collector concurrently. Each task
// is isolated: its error or panic is recorded against the source name and
// the remaining collectors keep going.
func (o *Orchestrator) collect(ctx context.Context, L log.Logger, errs *errorList) map[string][]signal.Raw {
	var (
		mu       sync.Mutex
		bySource = make(map[string][]signal.Raw)
	)

	var g errgroup.Group
	for _, c := range o.registry.All() {
		g.Go(func() error {
			source := c.SourceName()
			taskStart := time.Now()

			cctx, cancel := context.WithTimeout(ctx, o.collectTimeout)
			defer cancel()

			signals, err := func() (out []signal.Raw, err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				return c.Collect(cctx)
			}()

			o.metrics.ObserveCollector(source, time.Since(taskStart).Seconds(), err)

			if err != nil {
				L.Error(ctx, err, "collector failed", "source", source)
				errs.append(fmt.Sprintf("collector %s: %v", source, err))
				return nil
			}

			L.Info(ctx, "collector finished", "source", source, "signals", len(signals))

			if len(signals) == 0 {
				return nil
			}
			mu.Lock()
			bySource[source] = append(bySource[source], signals...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; failures go to the error list

	return bySource
}

// classify makes the single downstream classification call. Any failure is
// recorded and the cycle proceeds with zero alerts; no diagnostic alert is
// fabricated in its place.
func (o *Orchestrator) classify(ctx context.Context, L log.Logger, bySource map[string][]signal.Raw, errs *errorList) *classify.Result {
	start := time.Now()
	result, err := o.classifier.Classify(ctx, bySource)
	o.metrics.ObserveClassify(time.Since(start).Seconds(), err)

	if err != nil {
		L.Error(ctx, err, "classification failed")
		errs.append(fmt.Sprintf("classification: %v", err))
		return nil
	}

	L.Info(ctx, "classification complete",
		"alerts", len(result.Alerts),
		"normal_activity", len(result.NormalActivity),
		"summary", result.Summary,
	)
	return result
}

// storeAlerts persists each alert independently. A validation or storage
// failure for one alert is recorded and does not block the others. Alerts
// landing in the urgent tier are routed to the notifier after the write.
func (o *Orchestrator) storeAlerts(ctx context.Context, L log.Logger, alerts []alert.Alert, errs *errorList) int {
	var stored int
	for i := range alerts {
		a := alerts[i]

		id, err := o.store.Store(ctx, &a)
		if err != nil {
			L.Error(ctx, err, "alert store failed", "topic", a.Topic)
			errs.append(fmt.Sprintf("store alert %q: %v", a.Topic, err))
			o.metrics.ObserveStoreFailure(err)
			continue
		}
		stored++
		a.ID = id

		tier := o.tiers.TierFor(a.Severity)
		L.Info(ctx, "alert stored",
			"id", id,
			"topic", a.Topic,
			"severity", a.Severity,
			"tier", tier,
		)

		if tier == alert.TierUrgentInvestigation && o.notifier != nil {
			if err := o.notifier.Notify(ctx, &a); err != nil {
				// notification is best-effort; not a cycle error
				L.Error(ctx, err, "urgent notification failed", "id", id)
			}
		}
	}
	return stored
}

func (o *Orchestrator) finalize(ctx context.Context, L log.Logger, report *Report, errs *errorList, start time.Time) *Report {
	report.EndTime = time.Now().UTC()
	report.ExecutionTimeSeconds = time.Since(start).Seconds()
	report.Errors = errs.all()
	report.Success = len(report.Errors) == 0

	o.metrics.ObserveCycle(report)

	L.Info(ctx, "cycle phase", "phase", PhaseCompleted,
		"duration", report.ExecutionTimeSeconds,
		"signals", report.SignalsCollected,
		"alerts_generated", report.AlertsGenerated,
		"alerts_stored", report.AlertsStored,
		"errors", len(report.Errors),
		"success", report.Success,
	)
	return report
}
