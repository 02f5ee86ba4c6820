package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/dedup"
	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/channels"
)

// backlogFactor caps how much of the undelivered backlog one delivery pass
// may drain, as a multiple of the batch size.
const backlogFactor = 3

// scheduleDelivery arms the delayed delivery pass. A newer cycle supersedes
// any pass still waiting; the pending set is recomputed from the persisted
// sets when the timer fires, so nothing scheduled earlier is lost.
func (p *Pipeline) scheduleDelivery(ctx context.Context, cycleID string) {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()

	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
	}

	delay := p.cfg.DeliveryDelay
	p.setState(StateAwaitingDelivery)
	p.log.InfoObj("delivery scheduled", "delivery_meta", map[string]any{
		"cycle_id": cycleID,
		"delay":    delay.String(),
	})

	p.pendingTimer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		p.DeliverPending(ctx)
	})
}

func (p *Pipeline) cancelPendingDelivery() {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
		p.pendingTimer = nil
	}
}

// DeliverPending publishes every known-but-undelivered record, in batches,
// and marks a record delivered once at least one channel accepts its batch.
func (p *Pipeline) DeliverPending(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setState(StateDelivering)
	defer p.setState(StateIdle)

	known, err := p.store.LoadKnown()
	if err != nil {
		p.log.ErrorObj("load known set failed", "error", err.Error())
		return
	}
	delivered, err := p.store.LoadDelivered()
	if err != nil {
		p.log.ErrorObj("load delivered set failed", "error", err.Error())
		return
	}

	pending := pendingRecords(known, delivered, backlogFactor*p.cfg.MaxBatchSize)
	if len(pending) == 0 {
		p.log.DebugObj("nothing pending for delivery", "delivery_meta", map[string]any{
			"known":     len(known),
			"delivered": len(delivered),
		})
		return
	}

	batches := channels.BuildBatches(pending, p.cfg.MaxBatchSize)
	deliveredNow := 0
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && p.cfg.InterChannelDelay > 0 {
			if !sleepCtx(ctx, p.cfg.InterChannelDelay) {
				break
			}
		}

		succeeded, err := p.fanout.Publish(ctx, batch)
		if err != nil {
			p.log.ErrorObj("batch delivery incomplete", "delivery_error", map[string]any{
				"batch_id":  batch.ID,
				"category":  string(batch.Category),
				"jobs":      batch.Size(),
				"succeeded": succeeded,
				"error":     err.Error(),
			})
		}
		if succeeded == 0 {
			// Every channel failed; the jobs stay pending for the next pass.
			continue
		}

		stamp := domain.FormatTimestamp(p.now())
		for _, job := range batch.Jobs {
			delivered = append(delivered, domain.DeliveryRecord{JobRecord: job, DeliveredAt: stamp})
		}

		// Persist before moving on so a crash between batches cannot
		// re-deliver what a channel already accepted.
		if err := p.store.SaveDelivered(delivered); err != nil {
			p.log.ErrorObj("save delivered set failed", "error", err.Error())
			continue
		}
		deliveredNow += batch.Size()

		p.log.InfoObj("batch delivered", "delivery_meta", map[string]any{
			"batch_id":  batch.ID,
			"category":  string(batch.Category),
			"jobs":      batch.Size(),
			"succeeded": succeeded,
		})
	}

	if deliveredNow == 0 {
		return
	}
	p.log.InfoObj("delivery pass completed", "delivery_meta", map[string]any{
		"delivered": deliveredNow,
		"batches":   len(batches),
	})
}

// pendingRecords returns known records absent from the delivered set, newest
// first, capped at limit. The set difference is recomputed here rather than
// carried over from the scrape, so restarts and superseded timers cannot
// double-deliver or drop records.
func pendingRecords(known []domain.JobRecord, delivered []domain.DeliveryRecord, limit int) []domain.JobRecord {
	deliveredSet := dedup.NewDeliveredFingerprintSet(delivered)

	pending := make([]domain.JobRecord, 0, len(known))
	for _, rec := range known {
		if deliveredSet.Contains(rec.Fingerprint) {
			continue
		}
		pending = append(pending, rec)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		ti, iok := pending[i].ScrapedTime()
		tj, jok := pending[j].ScrapedTime()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// runPrune sweeps both persisted sets past their retention horizons.
func (p *Pipeline) runPrune() {
	p.mu.Lock()
	defer p.mu.Unlock()

	droppedKnown, err := p.store.PruneKnown(p.cfg.KnownRetention)
	if err != nil {
		p.log.ErrorObj("prune known set failed", "error", err.Error())
	}
	droppedDelivered, err := p.store.PruneDelivered(p.cfg.DeliveredRetention)
	if err != nil {
		p.log.ErrorObj("prune delivered set failed", "error", err.Error())
	}

	p.log.InfoObj("retention sweep completed", "prune_meta", map[string]any{
		"dropped_known":     droppedKnown,
		"dropped_delivered": droppedDelivered,
	})
}
