package dedup

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

func TestProcessIntraBatchDuplicate(t *testing.T) {
	p := NewProcessor(nil)
	raw := []domain.JobRecord{
		{Title: "Clerk", Location: "Delhi", Source: "X"},
		{Title: "clerk", Location: "delhi", Source: "X"},
	}

	accepted := p.Process(raw, FingerprintSet{}, FingerprintSet{})
	if len(accepted) != 1 {
		t.Fatalf("expected exactly 1 accepted record, got %d", len(accepted))
	}
	if accepted[0].Title != "Clerk" {
		t.Fatalf("first occurrence should win, got %q", accepted[0].Title)
	}
}

func TestProcessRejectsMissingRequiredFields(t *testing.T) {
	p := NewProcessor(nil)
	raw := []domain.JobRecord{
		{Title: "", Location: "Delhi", Source: "X"},
		{Title: "Clerk", Location: "Delhi", Source: ""},
		{Title: "Clerk", Location: "Delhi", Source: "X"},
	}

	accepted := p.Process(raw, FingerprintSet{}, FingerprintSet{})
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted record, got %d", len(accepted))
	}
}

func TestProcessDefaultCategoryIsGovernment(t *testing.T) {
	p := NewProcessor(nil)
	accepted := p.Process([]domain.JobRecord{
		{Title: "Clerk", Location: "Delhi", Source: "X"},
		{Title: "Dev", Location: "Pune", Source: "X", Category: "private"},
		{Title: "Analyst", Location: "Mumbai", Source: "X", Category: "weird"},
	}, FingerprintSet{}, FingerprintSet{})

	if len(accepted) != 3 {
		t.Fatalf("expected 3 accepted, got %d", len(accepted))
	}
	if accepted[0].Category != domain.CategoryGovernment {
		t.Fatalf("missing category should default to government, got %s", accepted[0].Category)
	}
	if accepted[1].Category != domain.CategoryPrivate {
		t.Fatalf("private category lost, got %s", accepted[1].Category)
	}
	if accepted[2].Category != domain.CategoryGovernment {
		t.Fatalf("unknown category should default to government, got %s", accepted[2].Category)
	}
}

func TestProcessFillsDefaultsAndTruncates(t *testing.T) {
	p := NewProcessor(nil)
	raw := []domain.JobRecord{{
		Title:       strings.Repeat("t", 300),
		Description: strings.Repeat("d", 1200),
		Source:      "X",
	}}

	accepted := p.Process(raw, FingerprintSet{}, FingerprintSet{})
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(accepted))
	}
	rec := accepted[0]
	if len(rec.Title) != domain.MaxTitleLen {
		t.Fatalf("title not truncated: %d", len(rec.Title))
	}
	if len(rec.Description) != domain.MaxDescriptionLen {
		t.Fatalf("description not truncated: %d", len(rec.Description))
	}
	if rec.Location != "India" {
		t.Fatalf("location default missing, got %q", rec.Location)
	}
	if rec.Qualification != "As per notification" || rec.Deadline != "Check notification" {
		t.Fatalf("text defaults missing: %+v", rec)
	}
	if rec.ScrapedAt == "" || rec.ProcessedAt == "" || rec.Fingerprint == "" {
		t.Fatalf("timestamps or fingerprint not set: %+v", rec)
	}
}

func TestProcessTruncatesOnRuneBoundaries(t *testing.T) {
	p := NewProcessor(nil)
	// Each Devanagari letter is three bytes, so a byte-indexed cut at the
	// cap would land mid-rune.
	raw := []domain.JobRecord{{
		Title:       strings.Repeat("क", domain.MaxTitleLen+10),
		Description: strings.Repeat("ख", domain.MaxDescriptionLen+10),
		Source:      "X",
	}}

	accepted := p.Process(raw, FingerprintSet{}, FingerprintSet{})
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(accepted))
	}
	rec := accepted[0]
	if !utf8.ValidString(rec.Title) {
		t.Fatalf("title is not valid UTF-8 after truncation: %q", rec.Title)
	}
	if !utf8.ValidString(rec.Description) {
		t.Fatalf("description is not valid UTF-8 after truncation")
	}
	if got := utf8.RuneCountInString(rec.Title); got != domain.MaxTitleLen {
		t.Fatalf("title rune count = %d, want %d", got, domain.MaxTitleLen)
	}
	if got := utf8.RuneCountInString(rec.Description); got != domain.MaxDescriptionLen {
		t.Fatalf("description rune count = %d, want %d", got, domain.MaxDescriptionLen)
	}
}

func TestProcessAgainstKnownAndDeliveredSets(t *testing.T) {
	p := NewProcessor(nil)
	raw := []domain.JobRecord{
		{Title: "Clerk", Location: "Delhi", Source: "X"},
		{Title: "Peon", Location: "Delhi", Source: "X"},
		{Title: "Typist", Location: "Delhi", Source: "X"},
	}

	known := FingerprintSet{}
	known.Add(domain.Fingerprint("Clerk", "Delhi", "X"))
	delivered := FingerprintSet{}
	delivered.Add(domain.Fingerprint("Peon", "Delhi", "X"))

	accepted := p.Process(raw, known, delivered)
	if len(accepted) != 1 || accepted[0].Title != "Typist" {
		t.Fatalf("expected only Typist, got %+v", accepted)
	}
}

func TestProcessIdempotentOncePersisted(t *testing.T) {
	p := NewProcessor(nil)
	raw := []domain.JobRecord{
		{Title: "Clerk", Location: "Delhi", Source: "X"},
		{Title: "Peon", Location: "Delhi", Source: "X"},
	}

	known := FingerprintSet{}
	first := p.Process(raw, known, FingerprintSet{})
	if len(first) != 2 {
		t.Fatalf("first pass accepted %d, want 2", len(first))
	}

	// Not persisted: same output again.
	second := p.Process(raw, known, FingerprintSet{})
	if len(second) != 2 {
		t.Fatalf("unpersisted rerun accepted %d, want 2", len(second))
	}

	// Persisted: everything is now known.
	for _, rec := range first {
		known.Add(rec.Fingerprint)
	}
	third := p.Process(raw, known, FingerprintSet{})
	if len(third) != 0 {
		t.Fatalf("persisted rerun accepted %d, want 0", len(third))
	}
}

func TestProcessDetectsRegion(t *testing.T) {
	p := NewProcessor(nil)
	accepted := p.Process([]domain.JobRecord{
		{Title: "Clerk", Location: "Lucknow, Uttar Pradesh", Source: "X"},
	}, FingerprintSet{}, FingerprintSet{})
	if len(accepted) != 1 || accepted[0].Region != "Uttar Pradesh" {
		t.Fatalf("region not detected: %+v", accepted)
	}
}

func TestCleanTextStripsControlCharacters(t *testing.T) {
	got := cleanText("Junior\tEngineer\r\n  (Civil)")
	if got != "Junior Engineer (Civil)" {
		t.Fatalf("cleanText = %q", got)
	}
}
