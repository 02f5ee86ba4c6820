package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/rozgar-hq/rozgar-dispatch/internal/config"
	"github.com/rozgar-hq/rozgar-dispatch/internal/dedup"
	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
	"github.com/rozgar-hq/rozgar-dispatch/internal/storage"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/channels"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/sources"
)

// State describes what the pipeline is currently doing.
type State string

const (
	StateIdle             State = "idle"
	StateScraping         State = "scraping"
	StateProcessing       State = "processing"
	StateAwaitingDelivery State = "awaiting_delivery"
	StateDelivering       State = "delivering"
)

// Publisher is the downstream delivery surface the pipeline drives.
// *channels.Fanout satisfies it.
type Publisher interface {
	Publish(ctx context.Context, batch channels.Batch) (int, error)
	Notify(ctx context.Context, text string) (int, error)
	Size() int
}

// Snapshot is a point-in-time view of the pipeline for the monitor surface.
type Snapshot struct {
	State       State     `json:"state"`
	CyclesRun   int       `json:"cycles_run"`
	LastCycleAt time.Time `json:"last_cycle_at"`
	LastFresh   int       `json:"last_cycle_fresh"`
	Sources     int       `json:"sources"`
	Channels    int       `json:"channels"`
}

// Pipeline coordinates the scrape, dedup, delivery, and retention loops.
type Pipeline struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.Store
	srcReg   *sources.Registry
	fetchers sources.FetcherRegistry
	fanout   Publisher
	proc     *dedup.Processor
	now      func() time.Time

	trigger chan struct{}

	// mu serializes every pass that mutates the persisted sets: delivery,
	// backlog sweeps, and pruning.
	mu sync.Mutex

	stateMu   sync.RWMutex
	state     State
	cycles    int
	lastCycle time.Time
	lastFresh int

	timerMu      sync.Mutex
	pendingTimer *time.Timer
}

// New builds a pipeline from its collaborators.
func New(cfg *config.Config, store storage.Store, srcReg *sources.Registry, fetchers sources.FetcherRegistry, fanout Publisher, log logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if srcReg == nil {
		return nil, fmt.Errorf("source registry must not be nil")
	}
	if fanout == nil {
		return nil, fmt.Errorf("fanout must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if fetchers == nil {
		fetchers = sources.DefaultFetcherRegistry(nil)
	}

	return &Pipeline{
		cfg:      cfg,
		log:      log,
		store:    store,
		srcReg:   srcReg,
		fetchers: fetchers,
		fanout:   fanout,
		proc:     dedup.NewProcessor(log),
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		state:    StateIdle,
	}, nil
}

// TriggerCycle requests an immediate scrape cycle. It reports false when a
// trigger is already queued.
func (p *Pipeline) TriggerCycle() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Snapshot returns the current pipeline state for the monitor surface.
func (p *Pipeline) Snapshot() Snapshot {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return Snapshot{
		State:       p.state,
		CyclesRun:   p.cycles,
		LastCycleAt: p.lastCycle,
		LastFresh:   p.lastFresh,
		Sources:     len(p.srcReg.Enabled()),
		Channels:    p.fanout.Size(),
	}
}

func (p *Pipeline) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// Run drives the pipeline until the context is cancelled. The first cycle
// starts immediately; later cycles follow the scrape interval or an explicit
// trigger. Pruning and status reports run on their own schedules.
func (p *Pipeline) Run(ctx context.Context) error {
	enabled := p.srcReg.Enabled()
	if len(enabled) == 0 {
		p.log.WarnObj("no sources enabled; pipeline idle", "sources_file", p.cfg.SourcesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	p.log.InfoObj("pipeline loop starting", "pipeline_state", map[string]any{
		"sources_count":   len(enabled),
		"channels_count":  p.fanout.Size(),
		"scrape_interval": p.cfg.ScrapeInterval.String(),
		"delivery_delay":  p.cfg.DeliveryDelay.String(),
	})

	sched := cron.New()
	if _, err := sched.AddFunc(p.cfg.PruneSchedule, func() { p.runPrune() }); err != nil {
		return fmt.Errorf("schedule prune: %w", err)
	}
	if _, err := sched.AddFunc(fmt.Sprintf("@every %s", p.cfg.StatusInterval), func() { p.sendStatus(ctx) }); err != nil {
		return fmt.Errorf("schedule status: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	defer p.cancelPendingDelivery()

	p.runCycle(ctx)

	ticker := time.NewTicker(p.cfg.ScrapeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("pipeline loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.runCycle(ctx)
		case <-p.trigger:
			p.log.InfoObj("manual cycle trigger received", "pipeline_state", string(p.Snapshot().State))
			p.runCycle(ctx)
		}
	}
}

// runCycle performs a single scrape and dedup pass, then arms the delayed
// delivery for whatever the cycle produced.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := p.now()
	cycleID := uuid.NewString()
	p.setState(StateScraping)

	raw := p.scrapeAll(ctx, cycleID)

	p.setState(StateProcessing)
	fresh, pending := p.processAndPersist(raw, cycleID)

	p.stateMu.Lock()
	p.cycles++
	p.lastCycle = start
	p.lastFresh = len(fresh)
	p.stateMu.Unlock()

	p.log.InfoObj("cycle completed", "cycle_meta", map[string]any{
		"cycle_id":   cycleID,
		"raw_count":  len(raw),
		"fresh":      len(fresh),
		"pending":    pending,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	// Anything undelivered, fresh or left over from an earlier failed pass,
	// arms the delayed delivery.
	if pending > 0 {
		p.scheduleDelivery(ctx, cycleID)
		return
	}
	p.setState(StateIdle)
}

// scrapeAll fetches every enabled source, isolating per-source failures.
func (p *Pipeline) scrapeAll(ctx context.Context, cycleID string) []domain.JobRecord {
	var raw []domain.JobRecord
	for i, src := range p.srcReg.Enabled() {
		if ctx.Err() != nil {
			return raw
		}
		if i > 0 && p.cfg.InterSourceDelay > 0 {
			if !sleepCtx(ctx, p.cfg.InterSourceDelay) {
				return raw
			}
		}

		fetcher, err := p.fetchers.FetcherFor(src)
		if err != nil {
			p.log.ErrorObj("no fetcher for source", "source_error", map[string]any{
				"cycle_id": cycleID,
				"source":   src.ID,
				"error":    err.Error(),
			})
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
		records, err := fetcher.Fetch(fetchCtx, src)
		cancel()
		if err != nil {
			// The cycle carries on with whatever the other sources return.
			p.log.ErrorObj("source fetch failed", "source_error", map[string]any{
				"cycle_id": cycleID,
				"source":   src.ID,
				"partial":  len(records),
				"error":    err.Error(),
			})
		}
		if len(records) > 0 {
			raw = append(raw, records...)
		}
		p.log.InfoObj("source fetched", "source_meta", map[string]any{
			"cycle_id": cycleID,
			"source":   src.ID,
			"records":  len(records),
		})
	}
	return raw
}

// processAndPersist dedups the raw scrape against the persisted sets and
// appends survivors to the known-set. It also reports how many known records
// are still undelivered so the caller can arm the delivery timer.
func (p *Pipeline) processAndPersist(raw []domain.JobRecord, cycleID string) ([]domain.JobRecord, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	known, err := p.store.LoadKnown()
	if err != nil {
		p.log.ErrorObj("load known set failed", "error", err.Error())
		return nil, 0
	}
	delivered, err := p.store.LoadDelivered()
	if err != nil {
		p.log.ErrorObj("load delivered set failed", "error", err.Error())
		return nil, 0
	}

	deliveredSet := dedup.NewDeliveredFingerprintSet(delivered)
	fresh := p.proc.Process(raw, dedup.NewFingerprintSet(known), deliveredSet)

	if len(fresh) > 0 {
		if err := p.store.SaveKnown(append(known, fresh...)); err != nil {
			p.log.ErrorObj("save known set failed", "cycle_error", map[string]any{
				"cycle_id": cycleID,
				"error":    err.Error(),
			})
			fresh = nil
		}
	}

	pending := len(fresh)
	for _, rec := range known {
		if !deliveredSet.Contains(rec.Fingerprint) {
			pending++
		}
	}
	return fresh, pending
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
