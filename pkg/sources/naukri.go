package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

const TypeNaukri = "naukri"

// naukriFetcher scrapes Naukri job tuples. Naukri serves private-sector
// postings, so all records are tagged private up front.
type naukriFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewNaukriFetcher builds a fetcher for Naukri listings.
func NewNaukriFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &naukriFetcher{client: client, now: time.Now}
}

func (f *naukriFetcher) ID() string { return TypeNaukri }

func (f *naukriFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.JobRecord, error) {
	if !strings.EqualFold(cfg.Type, TypeNaukri) {
		return nil, fmt.Errorf("naukri fetcher received incompatible source type %q", cfg.Type)
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

	tuples := doc.Find("article.jobTuple, .jobTuple, .srp-jobtuple-wrapper, .job-card")
	if tuples.Length() == 0 {
		return nil, fmt.Errorf("%s listing returned no job tuples", cfg.ID)
	}

	records := make([]domain.JobRecord, 0, cfg.MaxJobs)
	tuples.EachWithBreak(func(_ int, tuple *goquery.Selection) bool {
		if rec, ok := f.extractTuple(tuple, cfg); ok {
			records = append(records, rec)
		}
		return len(records) < cfg.MaxJobs
	})

	if len(records) == 0 {
		return nil, fmt.Errorf("%s job tuples yielded no records", cfg.ID)
	}
	return records, nil
}

func (f *naukriFetcher) extractTuple(tuple *goquery.Selection, cfg Source) (domain.JobRecord, bool) {
	titleNode := tuple.Find("a.title, .title a, .title").First()
	title := collapseText(titleNode.Text())
	if title == "" {
		return domain.JobRecord{}, false
	}

	applyLink := cfg.BaseURL
	if href, ok := titleNode.Attr("href"); ok {
		if resolved := absoluteURL(cfg.BaseURL, href); resolved != "" {
			applyLink = resolved
		}
	} else if href, ok := tuple.Find("a[href]").First().Attr("href"); ok {
		if resolved := absoluteURL(cfg.BaseURL, href); resolved != "" {
			applyLink = resolved
		}
	}

	company := collapseText(tuple.Find(".comp-name, .companyInfo, .subTitle").First().Text())
	location := collapseText(tuple.Find(".loc, .location, .locWdth").First().Text())
	experience := collapseText(tuple.Find(".exp, .expwdth").First().Text())

	description := collapseText(tuple.Text())
	if company != "" {
		description = company + " - " + description
	}

	qualification := experience
	if qualification == "" {
		qualification = extractQualification(description)
	}

	return domain.JobRecord{
		Title:         title,
		Description:   description,
		Location:      location,
		Region:        domain.DetectRegion(location),
		Category:      domain.CategoryPrivate,
		Qualification: qualification,
		ApplyLink:     applyLink,
		Source:        cfg.Name,
		ScrapedAt:     domain.FormatTimestamp(f.now()),
	}, true
}
