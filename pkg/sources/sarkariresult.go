package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

const TypeSarkariResult = "sarkariresult"

// sarkariResultFetcher scrapes the SarkariResult government portal: the
// front page lists fresh notifications, each linking to a detail page.
type sarkariResultFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewSarkariResultFetcher builds a fetcher for SarkariResult listings.
func NewSarkariResultFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &sarkariResultFetcher{client: client, now: time.Now}
}

func (f *sarkariResultFetcher) ID() string { return TypeSarkariResult }

func (f *sarkariResultFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.JobRecord, error) {
	if !strings.EqualFold(cfg.Type, TypeSarkariResult) {
		return nil, fmt.Errorf("sarkariresult fetcher received incompatible source type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("source %q base_url is empty", cfg.ID)
	}

	headers := Headers(cfg)
	doc, err := fetchDocument(ctx, f.client, cfg.BaseURL, cfg.ID, headers)
	if err != nil {
		return nil, err
	}

	links := f.collectLinks(doc, cfg)
	if len(links) == 0 {
		return nil, fmt.Errorf("%s listing returned no job links", cfg.ID)
	}

	records := make([]domain.JobRecord, 0, len(links))
	for i, link := range links {
		if i > 0 && !throttleWait(ctx, cfg.RequestDelay()) {
			return records, ctx.Err()
		}

		rec, err := f.scrapeDetail(ctx, cfg, link, headers)
		if err != nil {
			// One broken detail page does not spoil the rest.
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// collectLinks gathers candidate notification links from the fresh-results
// section and any listing tables.
func (f *sarkariResultFetcher) collectLinks(doc *goquery.Document, cfg Source) []string {
	var links []string

	doc.Find("div.newresult a[href], div#newresult a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			links = append(links, absoluteURL(cfg.BaseURL, href))
		}
	})
	doc.Find("table a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			links = append(links, absoluteURL(cfg.BaseURL, href))
		}
	})

	return dedupeLinks(links, cfg.MaxJobs)
}

func (f *sarkariResultFetcher) scrapeDetail(ctx context.Context, cfg Source, pageURL string, headers map[string]string) (domain.JobRecord, error) {
	doc, err := fetchDocument(ctx, f.client, pageURL, cfg.ID, headers)
	if err != nil {
		return domain.JobRecord{}, err
	}

	title := ""
	for _, sel := range []string{"h1", ".post-title", ".entry-title", "title"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if t := collapseText(node.Text()); t != "" {
				title = t
				break
			}
		}
	}

	body := collapseText(doc.Find("body").Text())

	return domain.JobRecord{
		Title:         title,
		Description:   body,
		Region:        domain.DetectRegion(body),
		Category:      domain.CategoryGovernment,
		Qualification: extractQualification(body),
		Deadline:      extractDeadline(body),
		ApplyLink:     pageURL,
		Source:        cfg.Name,
		ScrapedAt:     domain.FormatTimestamp(f.now()),
	}, nil
}
