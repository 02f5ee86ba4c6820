package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Fanout dispatches batches to all configured channels.
type Fanout struct {
	channels []Channel
	// delay spaces out consecutive channel sends within one batch.
	delay time.Duration
}

// NewFanout builds a dispatcher that fans out batches across channels.
func NewFanout(chans []Channel, delay time.Duration) *Fanout {
	cp := make([]Channel, 0, len(chans))
	for _, c := range chans {
		if c == nil {
			continue
		}
		cp = append(cp, c)
	}
	return &Fanout{channels: cp, delay: delay}
}

// Publish forwards the batch to every registered channel.
// It returns the number of channels that successfully handled the batch.
func (f *Fanout) Publish(ctx context.Context, batch Batch) (int, error) {
	return f.each(ctx, func(c Channel) error { return c.Publish(ctx, batch) })
}

// Notify forwards a status message to every registered channel.
func (f *Fanout) Notify(ctx context.Context, text string) (int, error) {
	return f.each(ctx, func(c Channel) error { return c.Notify(ctx, text) })
}

func (f *Fanout) each(ctx context.Context, send func(Channel) error) (int, error) {
	if f == nil || len(f.channels) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for i, c := range f.channels {
		if i > 0 && f.delay > 0 {
			if !sleepCtx(ctx, f.delay) {
				errs = append(errs, ctx.Err())
				break
			}
		}
		if err := send(c); err != nil {
			errs = append(errs, fmt.Errorf("%s channel[%s]: %w", c.Type(), c.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
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

// Size returns the number of active channels.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.channels)
}

// Close releases channels holding external connections. Channels without
// a Close method are skipped.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, c := range f.channels {
		closer, ok := c.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s channel[%s]: %w", c.Type(), c.ID(), err))
		}
	}
	return errors.Join(errs...)
}
