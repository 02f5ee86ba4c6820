package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/pipeline"
	"github.com/rozgar-hq/rozgar-dispatch/internal/storage"
)

type fakePipeline struct {
	snap      pipeline.Snapshot
	triggered int
	queued    bool
}

func (f *fakePipeline) Snapshot() pipeline.Snapshot { return f.snap }
func (f *fakePipeline) TriggerCycle() bool {
	f.triggered++
	return f.queued
}

func seedStore(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewStore("json", storage.Paths{
		KnownFile:     filepath.Join(dir, "jobs.json"),
		DeliveredFile: filepath.Join(dir, "delivered_jobs.json"),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now()
	records := []domain.JobRecord{
		{
			Title:       "Railway Clerk",
			Category:    domain.CategoryGovernment,
			Region:      "Bihar",
			Source:      "SarkariResult",
			ScrapedAt:   domain.FormatTimestamp(now.Add(-1 * time.Hour)),
			Fingerprint: domain.Fingerprint("Railway Clerk", "", "SarkariResult"),
		},
		{
			Title:       "Backend Developer",
			Category:    domain.CategoryPrivate,
			Region:      "Maharashtra",
			Source:      "Naukri",
			ScrapedAt:   domain.FormatTimestamp(now),
			Fingerprint: domain.Fingerprint("Backend Developer", "", "Naukri"),
		},
	}
	if err := store.SaveKnown(records); err != nil {
		t.Fatalf("SaveKnown: %v", err)
	}
	if err := store.SaveDelivered([]domain.DeliveryRecord{
		{JobRecord: records[0], DeliveredAt: domain.FormatTimestamp(now)},
	}); err != nil {
		t.Fatalf("SaveDelivered: %v", err)
	}
	return store
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestJobsEndpointFilters(t *testing.T) {
	srv := NewServer(":0", seedStore(t), &fakePipeline{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/jobs?category=private")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Count int                `json:"count"`
		Jobs  []domain.JobRecord `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 || body.Jobs[0].Title != "Backend Developer" {
		t.Fatalf("unexpected filter result: %+v", body)
	}
}

func TestJobsEndpointNewestFirst(t *testing.T) {
	srv := NewServer(":0", seedStore(t), &fakePipeline{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/jobs")
	var body struct {
		Jobs []domain.JobRecord `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Jobs) != 2 || body.Jobs[0].Title != "Backend Developer" {
		t.Fatalf("jobs not newest-first: %+v", body.Jobs)
	}
}

func TestDeliveredEndpoint(t *testing.T) {
	srv := NewServer(":0", seedStore(t), &fakePipeline{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/delivered?limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Count     int                     `json:"count"`
		Delivered []domain.DeliveryRecord `json:"delivered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 || body.Delivered[0].Title != "Railway Clerk" {
		t.Fatalf("unexpected delivered payload: %+v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	pipe := &fakePipeline{snap: pipeline.Snapshot{State: pipeline.StateIdle, CyclesRun: 4}}
	srv := NewServer(":0", seedStore(t), pipe, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/stats")
	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["total_jobs"].(float64) != 2 {
		t.Fatalf("total_jobs = %v", stats["total_jobs"])
	}
	if stats["pending"].(float64) != 1 {
		t.Fatalf("pending = %v", stats["pending"])
	}
	perCategory := stats["per_category"].(map[string]any)
	if perCategory["government"].(float64) != 1 || perCategory["private"].(float64) != 1 {
		t.Fatalf("per_category = %v", perCategory)
	}
	if _, ok := stats["pipeline"]; !ok {
		t.Fatalf("stats missing pipeline snapshot")
	}
}

func TestCycleEndpoint(t *testing.T) {
	pipe := &fakePipeline{queued: true}
	srv := NewServer(":0", seedStore(t), pipe, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/cycle")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if pipe.triggered != 1 {
		t.Fatalf("trigger not forwarded")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/cycle")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET should be rejected, got %d", rec.Code)
	}
}
