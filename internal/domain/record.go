package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic identity token
	"encoding/hex"
	"strings"
	"time"
)

// Domain contains the canonical job record model shared by every component.

// Category classifies a posting as government or private sector.
type Category string

const (
	CategoryGovernment Category = "government"
	CategoryPrivate    Category = "private"
)

// ParseCategory maps free-form input to a Category. Unknown or empty values
// default to government: the feed is government-job-weighted and the default
// is deliberate.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CategoryPrivate):
		return CategoryPrivate
	default:
		return CategoryGovernment
	}
}

// Maximum persisted field lengths. Over-long values are truncated, never
// rejected.
const (
	MaxTitleLen         = 200
	MaxDescriptionLen   = 1000
	MaxLocationLen      = 100
	MaxQualificationLen = 200
	MaxDeadlineLen      = 100
)

// JobRecord is the canonical unit flowing through the pipeline.
//
// ScrapedAt and ProcessedAt are RFC3339 strings rather than time.Time so the
// retention sweep can keep records whose timestamp no longer parses instead
// of silently discarding them on decode.
type JobRecord struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Region        string   `json:"region,omitempty"`
	Category      Category `json:"category"`
	Qualification string   `json:"qualification"`
	Deadline      string   `json:"deadline"`
	ApplyLink     string   `json:"apply_link"`
	Source        string   `json:"source"`
	ScrapedAt     string   `json:"scraped_at"`
	Fingerprint   string   `json:"fingerprint"`
	ProcessedAt   string   `json:"processed_at"`
}

// DeliveryRecord is a JobRecord that has been published through at least one
// channel.
type DeliveryRecord struct {
	JobRecord
	DeliveredAt string `json:"delivered_at"`
}

// Fingerprint derives the deduplication identity token from the normalized
// (title, location, source) triple. All other fields are ignored, so two
// records describing the same posting collide regardless of how their
// descriptions or links differ.
func Fingerprint(title, location, source string) string {
	content := normalizeForFingerprint(title) + "|" + normalizeForFingerprint(location) + "|" + normalizeForFingerprint(source)
	sum := sha1.Sum([]byte(content)) //nolint:gosec // identity, not security
	return hex.EncodeToString(sum[:])
}

func normalizeForFingerprint(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ScrapedTime parses ScrapedAt, reporting whether it parsed.
func (r JobRecord) ScrapedTime() (time.Time, bool) {
	return parseTimestamp(r.ScrapedAt)
}

// DeliveredTime parses DeliveredAt, reporting whether it parsed.
func (r DeliveryRecord) DeliveredTime() (time.Time, bool) {
	return parseTimestamp(r.DeliveredAt)
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	// Older exports carried timestamps without an offset.
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatTimestamp renders t in the persisted timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
