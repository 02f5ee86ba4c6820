package sources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: sarkari
    name: SarkariResult
    type: sarkariresult
    base_url: https://www.sarkariresult.com
    category: government
    request_delay_ms: 750
  - id: naukri
    name: Naukri
    type: naukri
    base_url: https://www.naukri.com
    category: private
    enabled: false
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(reg.All()))
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "sarkari" {
		t.Fatalf("expected only sarkari enabled, got %+v", enabled)
	}

	src, ok := reg.ByID("sarkari")
	if !ok {
		t.Fatalf("expected source id sarkari to be loaded")
	}
	if src.Category != domain.CategoryGovernment {
		t.Fatalf("unexpected category: %s", src.Category)
	}
	if src.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", src.RequestDelay())
	}
	if src.MaxJobs != defaultMaxJobs {
		t.Fatalf("max_jobs default missing: %d", src.MaxJobs)
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: duplicate
    name: Source One
    type: naukri
    base_url: https://p1.example
  - id: duplicate
    name: Source Two
    type: naukri
    base_url: https://p2.example
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate source error, got nil")
	}
}

func TestLoadRegistryRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: broken
    name: Broken
    type: naukri
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected validation error for missing base_url")
	}
}

func TestDefaultFetcherRegistryResolvesByType(t *testing.T) {
	reg := DefaultFetcherRegistry(nil)
	for _, typ := range []string{TypeSarkariResult, TypeFreshersWorld, TypeNaukri} {
		f, err := reg.FetcherFor(Source{ID: "any-" + typ, Type: typ})
		if err != nil {
			t.Fatalf("FetcherFor(%s): %v", typ, err)
		}
		if f.ID() != typ {
			t.Fatalf("resolved wrong fetcher %s for %s", f.ID(), typ)
		}
	}

	if _, err := reg.FetcherFor(Source{ID: "x", Type: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.sarkariresult.com"
	if got := absoluteURL(base, "/latestjob"); got != "https://www.sarkariresult.com/latestjob" {
		t.Fatalf("absoluteURL relative = %q", got)
	}
	if got := absoluteURL(base, "https://other.example/x"); got != "https://other.example/x" {
		t.Fatalf("absoluteURL absolute = %q", got)
	}
	if got := absoluteURL(base, "#top"); got != "" {
		t.Fatalf("absoluteURL fragment = %q", got)
	}
}

func TestExtractDeadline(t *testing.T) {
	text := "Applications open. Last Date : 15 March 2026 apply online"
	if got := extractDeadline(text); got != "15 March 2026 apply online" {
		t.Fatalf("extractDeadline = %q", got)
	}
	if got := extractDeadline("no marker here"); got != "" {
		t.Fatalf("expected empty deadline, got %q", got)
	}
}
