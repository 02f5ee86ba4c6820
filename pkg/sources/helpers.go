package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// fetchDocument downloads a page and parses it into a goquery document.
func fetchDocument(ctx context.Context, client httpclient.Client, pageURL, sourceID string, headers map[string]string) (*goquery.Document, error) {
	resp, err := client.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", sourceID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s page returned status %d body: %s", sourceID, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", sourceID, err)
	}
	return doc, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// absoluteURL resolves href against base, returning "" for junk links.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	parsedBase, err := url.Parse(base)
	if err != nil {
		return ""
	}
	parsedRef, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return parsedBase.ResolveReference(parsedRef).String()
}

// collapseText normalizes element text to a single line.
func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// deadline markers used by the portals, lowercase.
var deadlineMarkers = []string{"last date", "apply before", "closing date", "deadline"}

// extractDeadline pulls the free-form text following a deadline marker.
// The result stays unparsed; the record model treats deadlines as text.
func extractDeadline(text string) string {
	lowered := strings.ToLower(text)
	for _, marker := range deadlineMarkers {
		idx := strings.Index(lowered, marker)
		if idx < 0 {
			continue
		}
		tail := text[idx+len(marker):]
		tail = strings.TrimLeft(tail, " :-–")
		fields := strings.Fields(tail)
		if len(fields) > 6 {
			fields = fields[:6]
		}
		if candidate := strings.Join(fields, " "); candidate != "" {
			return candidate
		}
	}
	return ""
}

var qualificationMarkers = []string{"qualification", "eligibility", "educational"}

// extractQualification pulls the text following a qualification marker.
func extractQualification(text string) string {
	lowered := strings.ToLower(text)
	for _, marker := range qualificationMarkers {
		idx := strings.Index(lowered, marker)
		if idx < 0 {
			continue
		}
		tail := text[idx+len(marker):]
		tail = strings.TrimLeft(tail, " :-–")
		fields := strings.Fields(tail)
		if len(fields) > 10 {
			fields = fields[:10]
		}
		if candidate := strings.Join(fields, " "); candidate != "" {
			return candidate
		}
	}
	return ""
}

// throttleWait sleeps for the source's request delay or until ctx is done.
func throttleWait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// dedupeLinks keeps link order while removing repeats, capped at limit.
func dedupeLinks(links []string, limit int) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
