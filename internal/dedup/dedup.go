package dedup

import (
	"strings"
	"time"
	"unicode"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
)

// Package dedup turns raw scraped records into validated, normalized,
// fingerprinted JobRecords and filters out everything already known,
// already delivered, or repeated within the same batch.

// Defaults applied to optional fields a source did not fill.
const (
	defaultDescription   = "Job details not available"
	defaultLocation      = "India"
	defaultQualification = "As per notification"
	defaultDeadline      = "Check notification"
)

// FingerprintSet is a membership set keyed by fingerprint.
type FingerprintSet map[string]struct{}

// NewFingerprintSet collects the fingerprints of known records.
func NewFingerprintSet(records []domain.JobRecord) FingerprintSet {
	set := make(FingerprintSet, len(records))
	for _, rec := range records {
		set.Add(rec.Fingerprint)
	}
	return set
}

// NewDeliveredFingerprintSet collects the fingerprints of delivered records.
func NewDeliveredFingerprintSet(records []domain.DeliveryRecord) FingerprintSet {
	set := make(FingerprintSet, len(records))
	for _, rec := range records {
		set.Add(rec.Fingerprint)
	}
	return set
}

func (s FingerprintSet) Add(fp string) {
	if fp == "" {
		return
	}
	s[fp] = struct{}{}
}

func (s FingerprintSet) Contains(fp string) bool {
	_, ok := s[fp]
	return ok
}

// Processor validates and deduplicates raw batches. It has no state of its
// own: given the same inputs it always produces the same output, and it never
// touches the store.
type Processor struct {
	log logger.Logger
	now func() time.Time
}

// NewProcessor builds a Processor with the given logger (or a nop one).
func NewProcessor(log logger.Logger) *Processor {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Processor{log: log, now: time.Now}
}

// Process returns the subset of raw records that are well-formed and carry a
// fingerprint seen in neither known nor delivered nor earlier in this batch.
// First occurrence wins inside a batch; later duplicates are dropped
// silently. Invalid records are logged and skipped, never fatal.
func (p *Processor) Process(raw []domain.JobRecord, known, delivered FingerprintSet) []domain.JobRecord {
	if len(raw) == 0 {
		return nil
	}

	accepted := make([]domain.JobRecord, 0, len(raw))
	seenInBatch := make(FingerprintSet, len(raw))
	duplicates := 0
	invalid := 0

	for _, rec := range raw {
		cleaned, ok := p.cleanAndValidate(rec)
		if !ok {
			invalid++
			continue
		}

		fp := cleaned.Fingerprint
		if known.Contains(fp) || delivered.Contains(fp) || seenInBatch.Contains(fp) {
			duplicates++
			continue
		}

		seenInBatch.Add(fp)
		accepted = append(accepted, cleaned)
	}

	p.log.InfoObj("batch processed", "dedup_result", map[string]any{
		"raw":        len(raw),
		"accepted":   len(accepted),
		"duplicates": duplicates,
		"invalid":    invalid,
	})

	return accepted
}

// cleanAndValidate normalizes a raw record and reports whether it is usable.
// Records missing a title or source are rejected; every other gap is filled
// with a default.
func (p *Processor) cleanAndValidate(rec domain.JobRecord) (domain.JobRecord, bool) {
	rec.Title = cleanText(rec.Title)
	rec.Description = cleanText(rec.Description)
	rec.Location = cleanText(rec.Location)
	rec.Qualification = cleanText(rec.Qualification)
	rec.Deadline = cleanText(rec.Deadline)
	rec.Source = strings.TrimSpace(rec.Source)
	rec.ApplyLink = strings.TrimSpace(rec.ApplyLink)

	if rec.Title == "" || rec.Source == "" {
		p.log.WarnObj("record missing required field, dropped", "validation_failure", map[string]any{
			"title":  rec.Title,
			"source": rec.Source,
		})
		return domain.JobRecord{}, false
	}

	if rec.Description == "" {
		rec.Description = defaultDescription
	}
	if rec.Location == "" {
		rec.Location = defaultLocation
	}
	if rec.Qualification == "" {
		rec.Qualification = defaultQualification
	}
	if rec.Deadline == "" {
		rec.Deadline = defaultDeadline
	}
	rec.Category = domain.ParseCategory(string(rec.Category))
	if rec.Region == "" {
		rec.Region = domain.DetectRegion(rec.Location + " " + rec.Title)
	}

	rec.Title = truncate(rec.Title, domain.MaxTitleLen)
	rec.Description = truncate(rec.Description, domain.MaxDescriptionLen)
	rec.Location = truncate(rec.Location, domain.MaxLocationLen)
	rec.Qualification = truncate(rec.Qualification, domain.MaxQualificationLen)
	rec.Deadline = truncate(rec.Deadline, domain.MaxDeadlineLen)

	if rec.ScrapedAt == "" {
		rec.ScrapedAt = domain.FormatTimestamp(p.now())
	}
	rec.Fingerprint = domain.Fingerprint(rec.Title, rec.Location, rec.Source)
	rec.ProcessedAt = domain.FormatTimestamp(p.now())

	return rec, true
}

// cleanText collapses whitespace and strips control characters.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// truncate caps s at max runes. Cutting by runes keeps multi-byte text,
// Devanagari titles in particular, valid UTF-8 after the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
