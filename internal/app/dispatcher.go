package app

import (
	"context"
	"fmt"

	"github.com/rozgar-hq/rozgar-dispatch/internal/config"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
	"github.com/rozgar-hq/rozgar-dispatch/internal/monitor"
	"github.com/rozgar-hq/rozgar-dispatch/internal/pipeline"
	"github.com/rozgar-hq/rozgar-dispatch/internal/storage"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/channels"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/sources"
)

// Dispatcher represents the job-dispatch runtime. It owns the scrape/deliver
// pipeline, the delivery fanout, storage, and the optional monitor server.
type Dispatcher struct {
	cfg     *config.Config
	log     logger.Logger
	store   storage.Store
	fanout  *channels.Fanout
	pipe    *pipeline.Pipeline
	monitor *monitor.Server
}

// NewDispatcher builds a dispatcher runtime from config files.
func NewDispatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	srcReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	srcList := srcReg.All()
	srcIDs := make([]string, 0, len(srcList))
	for _, src := range srcList {
		srcIDs = append(srcIDs, src.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(srcIDs),
		"ids":   srcIDs,
	})

	chanReg, err := channels.LoadRegistry(cfg.ChannelsFile)
	if err != nil {
		return nil, fmt.Errorf("load channels registry: %w", err)
	}
	enabledChannels := chanReg.Enabled()
	if len(enabledChannels) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}

	chanClients, err := channels.BuildAll(ctx, channels.DefaultRegistry(), enabledChannels, log)
	if err != nil {
		return nil, fmt.Errorf("build channels: %w", err)
	}
	fanout := channels.NewFanout(chanClients, cfg.InterChannelDelay)
	channelSummaries := make([]map[string]string, 0, len(enabledChannels))
	for _, chCfg := range enabledChannels {
		channelSummaries = append(channelSummaries, map[string]string{
			"id":   chCfg.ID,
			"type": chCfg.Type,
		})
	}
	log.InfoObj("channels registry loaded", "channels_meta", map[string]any{
		"count":    len(channelSummaries),
		"channels": channelSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, storage.Paths{
		KnownFile:     cfg.KnownPath(),
		DeliveredFile: cfg.DeliveredPath(),
		BoltFile:      cfg.BBoltPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":           cfg.StorageType,
		"known_file":     cfg.KnownPath(),
		"delivered_file": cfg.DeliveredPath(),
	})

	fetchers := sources.DefaultFetcherRegistry(httpclient.NewRestyClient(cfg.FetchTimeout))
	pipe, err := pipeline.New(cfg, store, srcReg, fetchers, fanout, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	d := &Dispatcher{
		cfg:    cfg,
		log:    log,
		store:  store,
		fanout: fanout,
		pipe:   pipe,
	}
	if cfg.MonitorEnabled {
		d.monitor = monitor.NewServer(cfg.MonitorAddr, store, pipe, log)
	}
	return d, nil
}

// Run starts the pipeline and monitor until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d == nil || d.pipe == nil {
		return fmt.Errorf("dispatcher is not initialized")
	}
	defer d.shutdown()

	if d.monitor != nil {
		go func() {
			if err := d.monitor.Run(ctx); err != nil {
				d.log.ErrorObj("monitor server failed", "error", err.Error())
			}
		}()
	}

	return d.pipe.Run(ctx)
}

// shutdown releases channel connections and the storage backend, logging
// any errors encountered.
func (d *Dispatcher) shutdown() {
	if d == nil {
		return
	}
	if d.fanout != nil {
		if err := d.fanout.Close(); err != nil {
			d.log.ErrorObj("channels close failed", "error", err.Error())
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
}
