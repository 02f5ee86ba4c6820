package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

const TypeFreshersWorld = "freshersworld"

// jobCardSelectors are tried in order; the portal has shipped several
// listing layouts over time.
var jobCardSelectors = []string{
	".job-container",
	".job-item",
	".jobs-list .job",
	".job-card",
	".latest-job",
}

var governmentKeywords = []string{"sarkari", "government", "govt", "public sector", "psu", "railway", "ssc", "upsc"}

// freshersWorldFetcher scrapes the FreshersWorld listing cards. The portal
// mixes government and private postings, so the category is derived per card.
type freshersWorldFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewFreshersWorldFetcher builds a fetcher for FreshersWorld listings.
func NewFreshersWorldFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &freshersWorldFetcher{client: client, now: time.Now}
}

func (f *freshersWorldFetcher) ID() string { return TypeFreshersWorld }

func (f *freshersWorldFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.JobRecord, error) {
	if !strings.EqualFold(cfg.Type, TypeFreshersWorld) {
		return nil, fmt.Errorf("freshersworld fetcher received incompatible source type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("source %q base_url is empty", cfg.ID)
	}

	listingURL := cfg.BaseURL
	if path := ConfigString(cfg, ConfigListingPathKey, ""); path != "" {
		listingURL = absoluteURL(cfg.BaseURL, path)
	}

	doc, err := fetchDocument(ctx, f.client, listingURL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	cards := f.findJobCards(doc)
	if cards == nil || cards.Length() == 0 {
		return nil, fmt.Errorf("%s listing returned no job cards", cfg.ID)
	}

	records := make([]domain.JobRecord, 0, cfg.MaxJobs)
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if rec, ok := f.extractCard(card, cfg); ok {
			records = append(records, rec)
		}
		return len(records) < cfg.MaxJobs
	})

	if len(records) == 0 {
		return nil, fmt.Errorf("%s job cards yielded no records", cfg.ID)
	}
	return records, nil
}

func (f *freshersWorldFetcher) findJobCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range jobCardSelectors {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

func (f *freshersWorldFetcher) extractCard(card *goquery.Selection, cfg Source) (domain.JobRecord, bool) {
	title := ""
	for _, sel := range []string{"h2", "h3", ".job-title", ".title", "a"} {
		if node := card.Find(sel).First(); node.Length() > 0 {
			if t := collapseText(node.Text()); t != "" {
				title = t
				break
			}
		}
	}
	if title == "" {
		return domain.JobRecord{}, false
	}

	applyLink := cfg.BaseURL
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		if resolved := absoluteURL(cfg.BaseURL, href); resolved != "" {
			applyLink = resolved
		}
	}

	text := collapseText(card.Text())
	location := collapseText(card.Find(".location, .job-location, .loc").First().Text())

	return domain.JobRecord{
		Title:         title,
		Description:   text,
		Location:      location,
		Region:        domain.DetectRegion(text),
		Category:      classifyCategory(text),
		Qualification: extractQualification(text),
		Deadline:      extractDeadline(text),
		ApplyLink:     applyLink,
		Source:        cfg.Name,
		ScrapedAt:     domain.FormatTimestamp(f.now()),
	}, true
}

// classifyCategory leans government on keyword hits, private otherwise; the
// dedup layer applies the government default for anything left ambiguous.
func classifyCategory(text string) domain.Category {
	lowered := strings.ToLower(text)
	for _, kw := range governmentKeywords {
		if strings.Contains(lowered, kw) {
			return domain.CategoryGovernment
		}
	}
	return domain.CategoryPrivate
}
