package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

// Package sources contains pluggable job-portal configs (YAML/JSON) and the
// fetchers that scrape them.

// Source declares one scraping target.
type Source struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Type           string          `json:"type" yaml:"type"`
	BaseURL        string          `json:"base_url" yaml:"base_url"`
	Category       domain.Category `json:"category" yaml:"category"`
	Enabled        *bool           `json:"enabled" yaml:"enabled"`
	MaxJobs        int             `json:"max_jobs" yaml:"max_jobs"`
	RequestDelayMs int             `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any  `json:"config" yaml:"config"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

const (
	defaultRequestDelayMs = 2000
	defaultMaxJobs        = 15
)

// Registry materializes source definitions loaded from config files.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(fileReg.Sources)),
		idx:     make(map[string]Source, len(fileReg.Sources)),
	}

	for i := range fileReg.Sources {
		src := sanitizeSource(fileReg.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		reg.sources[i] = src
		reg.idx[src.ID] = src
	}

	return reg, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
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
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(src Source) Source {
	src.ID = strings.TrimSpace(src.ID)
	src.Name = strings.TrimSpace(src.Name)
	src.Type = strings.ToLower(strings.TrimSpace(src.Type))
	src.BaseURL = strings.TrimSpace(src.BaseURL)
	src.Category = domain.ParseCategory(string(src.Category))

	if src.Enabled == nil {
		def := true
		src.Enabled = &def
	}
	if src.Config == nil {
		src.Config = map[string]any{}
	}
	if src.RequestDelayMs <= 0 {
		src.RequestDelayMs = defaultRequestDelayMs
	}
	if src.MaxJobs <= 0 {
		src.MaxJobs = defaultMaxJobs
	}

	return src
}

func validateSource(src Source) error {
	if src.ID == "" {
		return errors.New("id is required")
	}
	if src.Name == "" {
		return fmt.Errorf("name is required for source %q", src.ID)
	}
	if src.Type == "" {
		return fmt.Errorf("type is required for source %q", src.ID)
	}
	if src.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", src.ID)
	}
	return nil
}

// ByID returns the source entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.idx[id]
	return src, ok
}

// All returns all configured sources.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Enabled returns sources that are enabled.
func (r *Registry) Enabled() []Source {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]Source, 0, len(all))
	for _, src := range all {
		if src.EnabledValue() {
			out = append(out, src)
		}
	}
	return out
}

// EnabledValue returns the enabled flag defaulting to true.
func (src Source) EnabledValue() bool {
	if src.Enabled == nil {
		return true
	}
	return *src.Enabled
}

// RequestDelay returns the per-request throttle duration for the source.
func (src Source) RequestDelay() time.Duration {
	if src.RequestDelayMs <= 0 {
		return defaultRequestDelayMs * time.Millisecond
	}
	return time.Duration(src.RequestDelayMs) * time.Millisecond
}
