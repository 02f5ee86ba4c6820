package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Channel from a config entry.
type Builder func(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error)

// Registry maps channel types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	ChannelFor(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a channel type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// ChannelFor returns the channel built for the provided config.
func (r *registry) ChannelFor(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("channel %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no channel registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, ensureLogger(log))
}

// DefaultRegistry wires up known channels.
func DefaultRegistry() Registry {
	builders := map[string]Builder{
		TypeTelegram: newTelegramChannel,
		TypeBlogger:  newBloggerChannel,
		TypeHTTP:     newHTTPChannel,
		TypeSQS:      newSQSChannel,
		TypeSNS:      newSNSChannel,
		TypePubSub:   newPubSubChannel,
	}
	return NewRegistry(builders)
}

// BuildAll instantiates channels for configs using the registry.
func BuildAll(ctx context.Context, reg Registry, cfgs []ChannelConfig, log Logger) ([]Channel, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var chans []Channel
	for _, cfg := range cfgs {
		ch, err := reg.ChannelFor(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		chans = append(chans, ch)
	}
	return chans, nil
}
