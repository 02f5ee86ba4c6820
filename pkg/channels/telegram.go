package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
)

const (
	telegramAPIBase        = "https://api.telegram.org"
	telegramTimeout        = 15 * time.Second
	telegramMaxMessageSize = 4096
)

type telegramChannel struct {
	id      string
	typ     string
	apiBase string
	token   string
	chatID  string
	client  *resty.Client
	log     Logger
}

func newTelegramChannel(_ context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.Telegram == nil {
		return nil, fmt.Errorf("channel %q missing telegram configuration", cfg.ID)
	}

	apiBase := cfg.Telegram.APIBase
	if apiBase == "" {
		apiBase = telegramAPIBase
	}

	return &telegramChannel{
		id:      cfg.ID,
		typ:     TypeTelegram,
		apiBase: apiBase,
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.ChatID,
		client:  httpclient.NewRestyHTTPClient(telegramTimeout),
		log:     ensureLogger(log),
	}, nil
}

func (t *telegramChannel) ID() string   { return t.id }
func (t *telegramChannel) Type() string { return t.typ }

func (t *telegramChannel) Publish(ctx context.Context, batch Batch) error {
	return t.sendMessage(ctx, formatBatchHTML(batch))
}

func (t *telegramChannel) Notify(ctx context.Context, text string) error {
	return t.sendMessage(ctx, html.EscapeString(text))
}

// telegramResponse is the Bot API envelope; Ok false carries a description.
type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *telegramChannel) sendMessage(ctx context.Context, text string) error {
	if len(text) > telegramMaxMessageSize {
		text = text[:telegramMaxMessageSize]
	}

	body := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}

	var apiResp telegramResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("telegram response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	if !apiResp.Ok {
		return fmt.Errorf("telegram api rejected message: %s", apiResp.Description)
	}

	t.log.DebugObj("telegram channel delivered message", "channel_telegram_delivery", map[string]any{
		"channel_id": t.id,
	})
	return nil
}

// formatBatchHTML renders a batch as a Telegram HTML message.
func formatBatchHTML(batch Batch) string {
	var b strings.Builder

	switch batch.Category {
	case domain.CategoryPrivate:
		b.WriteString("💼 <b>Private Job Updates</b>\n")
	default:
		b.WriteString("🏛 <b>Government Job Updates</b>\n")
	}

	for i, job := range batch.Jobs {
		b.WriteString(fmt.Sprintf("\n<b>%d. %s</b>\n", i+1, html.EscapeString(job.Title)))
		if job.Location != "" {
			b.WriteString("📍 " + html.EscapeString(job.Location) + "\n")
		}
		if job.Qualification != "" {
			b.WriteString("🎓 " + html.EscapeString(job.Qualification) + "\n")
		}
		if job.Deadline != "" {
			b.WriteString("🗓 Last date: " + html.EscapeString(job.Deadline) + "\n")
		}
		if job.ApplyLink != "" {
			b.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">Apply here</a>\n", html.EscapeString(job.ApplyLink)))
		}
		b.WriteString("📰 " + html.EscapeString(job.Source) + "\n")
	}

	return b.String()
}
