package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rozgar-hq/rozgar-dispatch/internal/dedup"
	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

// sendStatus pushes a periodic health summary through every channel. A
// failed status report is logged and forgotten; it never blocks the
// pipeline.
func (p *Pipeline) sendStatus(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	text, err := p.statusText()
	if err != nil {
		p.log.ErrorObj("status report build failed", "error", err.Error())
		return
	}

	if _, err := p.fanout.Notify(ctx, text); err != nil {
		p.log.WarnObj("status report partially delivered", "status_error", err.Error())
	}
}

func (p *Pipeline) statusText() (string, error) {
	known, err := p.store.LoadKnown()
	if err != nil {
		return "", fmt.Errorf("load known set: %w", err)
	}
	delivered, err := p.store.LoadDelivered()
	if err != nil {
		return "", fmt.Errorf("load delivered set: %w", err)
	}

	deliveredSet := dedup.NewDeliveredFingerprintSet(delivered)
	pending := 0
	government := 0
	private := 0
	for _, rec := range known {
		if !deliveredSet.Contains(rec.Fingerprint) {
			pending++
		}
		if rec.Category == domain.CategoryPrivate {
			private++
		} else {
			government++
		}
	}

	snap := p.Snapshot()
	var b strings.Builder
	b.WriteString("Rozgar Dispatch status\n")
	fmt.Fprintf(&b, "State: %s\n", snap.State)
	fmt.Fprintf(&b, "Cycles run: %d\n", snap.CyclesRun)
	if !snap.LastCycleAt.IsZero() {
		fmt.Fprintf(&b, "Last cycle: %s\n", snap.LastCycleAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "Known jobs: %d\n", len(known))
	fmt.Fprintf(&b, "Government jobs: %d\n", government)
	fmt.Fprintf(&b, "Private jobs: %d\n", private)
	fmt.Fprintf(&b, "Delivered: %d\n", len(delivered))
	fmt.Fprintf(&b, "Pending: %d", pending)
	return b.String(), nil
}
