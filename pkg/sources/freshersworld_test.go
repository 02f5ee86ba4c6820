package sources

import (
	"context"
	"testing"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

const freshersListing = `<html><body>
<div class="job-container">
  <h2>Software Engineer Trainee</h2>
  <a href="/jobs/software-engineer-trainee">Apply</a>
  <span class="location">Bengaluru, Karnataka</span>
  <p>Eligibility : B.E / B.Tech freshers may apply. Apply Before : 10 Oct 2026</p>
</div>
<div class="job-container">
  <h3>SSC Clerk Opening</h3>
  <a href="https://jobs.example/ssc-clerk">Apply</a>
  <span class="job-location">Delhi</span>
</div>
<div class="job-container">
  <span class="location">No title card</span>
</div>
</body></html>`

func TestFreshersWorldFetch(t *testing.T) {
	client := mockHTTPClient{
		t: t,
		pages: map[string]string{
			"https://www.freshersworld.com/jobs": freshersListing,
		},
	}

	fetcher := NewFreshersWorldFetcher(client)
	records, err := fetcher.Fetch(context.Background(), Source{
		ID:      "freshers",
		Name:    "FreshersWorld",
		Type:    TypeFreshersWorld,
		BaseURL: "https://www.freshersworld.com",
		MaxJobs: 10,
		Config:  map[string]any{ConfigListingPathKey: "/jobs"},
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (titleless card skipped), got %d", len(records))
	}

	first := records[0]
	if first.Title != "Software Engineer Trainee" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Category != domain.CategoryPrivate {
		t.Fatalf("expected private category, got %s", first.Category)
	}
	if first.Location != "Bengaluru, Karnataka" {
		t.Fatalf("unexpected location: %q", first.Location)
	}
	if first.Region != "Karnataka" {
		t.Fatalf("unexpected region: %q", first.Region)
	}
	if first.ApplyLink != "https://www.freshersworld.com/jobs/software-engineer-trainee" {
		t.Fatalf("unexpected apply link: %q", first.ApplyLink)
	}

	second := records[1]
	if second.Category != domain.CategoryGovernment {
		t.Fatalf("expected keyword hit to classify government, got %s", second.Category)
	}
	if second.ApplyLink != "https://jobs.example/ssc-clerk" {
		t.Fatalf("unexpected second apply link: %q", second.ApplyLink)
	}
}

func TestFreshersWorldFetchMaxJobs(t *testing.T) {
	client := mockHTTPClient{
		t: t,
		pages: map[string]string{
			"https://www.freshersworld.com": freshersListing,
		},
	}

	fetcher := NewFreshersWorldFetcher(client)
	records, err := fetcher.Fetch(context.Background(), Source{
		ID:      "freshers",
		Name:    "FreshersWorld",
		Type:    TypeFreshersWorld,
		BaseURL: "https://www.freshersworld.com",
		MaxJobs: 1,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected max_jobs cap of 1, got %d", len(records))
	}
}

func TestFreshersWorldFetchNoCards(t *testing.T) {
	client := mockHTTPClient{
		t: t,
		pages: map[string]string{
			"https://www.freshersworld.com": "<html><body><p>maintenance</p></body></html>",
		},
	}

	fetcher := NewFreshersWorldFetcher(client)
	if _, err := fetcher.Fetch(context.Background(), Source{
		ID:      "freshers",
		Name:    "FreshersWorld",
		Type:    TypeFreshersWorld,
		BaseURL: "https://www.freshersworld.com",
		MaxJobs: 5,
	}); err == nil {
		t.Fatalf("expected error when listing has no job cards")
	}
}
