package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
)

type httpChannel struct {
	id      string
	typ     string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPChannel(_ context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("channel %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)

	return &httpChannel{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func (h *httpChannel) ID() string   { return h.id }
func (h *httpChannel) Type() string { return h.typ }

func (h *httpChannel) Publish(ctx context.Context, batch Batch) error {
	return h.send(ctx, batch)
}

func (h *httpChannel) Notify(ctx context.Context, text string) error {
	return h.send(ctx, newStatusEnvelope(text))
}

func (h *httpChannel) send(ctx context.Context, payload any) error {
	req := h.client.R().
		SetContext(ctx).
		SetBody(payload)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
