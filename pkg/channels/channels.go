package channels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported channel types.
	TypeTelegram = "telegram"
	TypeBlogger  = "blogger"
	TypeHTTP     = "http"
	TypeSQS      = "sqs"
	TypeSNS      = "sns"
	TypePubSub   = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the channels configuration file.
type configFile struct {
	Channels []ChannelConfig `json:"channels" yaml:"channels"`
}

// ChannelConfig represents a single channel entry declared in config files.
type ChannelConfig struct {
	ID       string                 `json:"id" yaml:"id"`
	Type     string                 `json:"type" yaml:"type"`
	Enabled  *bool                  `json:"enabled" yaml:"enabled"`
	Telegram *TelegramChannelConfig `json:"telegram" yaml:"telegram"`
	Blogger  *BloggerChannelConfig  `json:"blogger" yaml:"blogger"`
	HTTP     *HTTPChannelConfig     `json:"http" yaml:"http"`
	SQS      *SQSChannelConfig      `json:"sqs" yaml:"sqs"`
	SNS      *SNSChannelConfig      `json:"sns" yaml:"sns"`
	PubSub   *PubSubChannelConfig   `json:"pubsub" yaml:"pubsub"`
}

// TelegramChannelConfig holds Telegram Bot API settings.
type TelegramChannelConfig struct {
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	// APIBase overrides the Bot API host, used for testing.
	APIBase string `json:"api_base" yaml:"api_base"`
}

// BloggerChannelConfig holds Google Blogger settings.
type BloggerChannelConfig struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	BlogID string `json:"blog_id" yaml:"blog_id"`
}

// HTTPChannelConfig holds generic HTTP sink settings.
type HTTPChannelConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSChannelConfig holds AWS SQS specific settings.
type SQSChannelConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSChannelConfig holds AWS SNS specific settings.
type SNSChannelConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// PubSubChannelConfig holds Google Cloud Pub/Sub settings.
type PubSubChannelConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
}

// ConfigRegistry materializes channel definitions loaded from config files.
type ConfigRegistry struct {
	mu       sync.RWMutex
	channels []ChannelConfig
	idx      map[string]ChannelConfig
}

// LoadRegistry loads the channel registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("channels file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channels file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}
	// Secrets are referenced as ${VAR} in the file and resolved here.
	raw = []byte(os.ExpandEnv(string(raw)))

	fileReg, err := parseChannelRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Channels) == 0 {
		return nil, errors.New("channels file contains no channels entries")
	}

	reg := &ConfigRegistry{
		channels: make([]ChannelConfig, len(fileReg.Channels)),
		idx:      make(map[string]ChannelConfig, len(fileReg.Channels)),
	}

	for i := range fileReg.Channels {
		cfg := sanitizeChannelConfig(fileReg.Channels[i])
		if err := validateChannelConfig(cfg); err != nil {
			return nil, fmt.Errorf("channels[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate channel id %q", cfg.ID)
		}
		reg.channels[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

// parseChannelRegistry attempts to decode the channels file content.
func parseChannelRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("channels file format not recognized (expected YAML or JSON)")
}

// sanitizeChannelConfig trims and normalizes the channel config fields.
func sanitizeChannelConfig(cfg ChannelConfig) ChannelConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.Telegram != nil {
		c := *cfg.Telegram
		c.BotToken = strings.TrimSpace(c.BotToken)
		c.ChatID = strings.TrimSpace(c.ChatID)
		c.APIBase = strings.TrimRight(strings.TrimSpace(c.APIBase), "/")
		cfg.Telegram = &c
	}
	if cfg.Blogger != nil {
		c := *cfg.Blogger
		c.APIKey = strings.TrimSpace(c.APIKey)
		c.BlogID = strings.TrimSpace(c.BlogID)
		cfg.Blogger = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		cfg.PubSub = &c
	}

	return cfg
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateChannelConfig checks that required fields are present.
func validateChannelConfig(cfg ChannelConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for channel %q", cfg.ID)
	}
	switch cfg.Type {
	case TypeTelegram:
		if cfg.Telegram == nil {
			return fmt.Errorf("telegram config required for channel %q", cfg.ID)
		}
		if cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required for channel %q", cfg.ID)
		}
		if cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required for channel %q", cfg.ID)
		}
	case TypeBlogger:
		if cfg.Blogger == nil {
			return fmt.Errorf("blogger config required for channel %q", cfg.ID)
		}
		if cfg.Blogger.APIKey == "" {
			return fmt.Errorf("blogger.api_key is required for channel %q", cfg.ID)
		}
		if cfg.Blogger.BlogID == "" {
			return fmt.Errorf("blogger.blog_id is required for channel %q", cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for channel %q", cfg.ID)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for channel %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for channel %q", cfg.ID)
		}
		if cfg.SQS.QueueURL == "" {
			return fmt.Errorf("sqs.uri is required for channel %q", cfg.ID)
		}
		if cfg.SQS.Region == "" {
			return fmt.Errorf("sqs.region is required for channel %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for channel %q", cfg.ID)
		}
		if cfg.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for channel %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for channel %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for channel %q", cfg.ID)
		}
		if cfg.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id is required for channel %q", cfg.ID)
		}
		if cfg.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.topic is required for channel %q", cfg.ID)
		}
	}
	return nil
}

// ByID returns the channel config by id.
func (r *ConfigRegistry) ByID(id string) (ChannelConfig, bool) {
	if r == nil {
		return ChannelConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ChannelConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured channels.
func (r *ConfigRegistry) All() []ChannelConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelConfig, len(r.channels))
	copy(out, r.channels)
	return out
}

// Enabled returns channels that are enabled.
func (r *ConfigRegistry) Enabled() []ChannelConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]ChannelConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg ChannelConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
