package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/dedup"
	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
	"github.com/rozgar-hq/rozgar-dispatch/internal/pipeline"
	"github.com/rozgar-hq/rozgar-dispatch/internal/storage"
)

const defaultListLimit = 50

// Pipeline is the control surface the monitor exposes over HTTP.
type Pipeline interface {
	Snapshot() pipeline.Snapshot
	TriggerCycle() bool
}

// Server exposes the read-only inspection API and the manual cycle trigger.
type Server struct {
	store storage.Store
	pipe  Pipeline
	log   logger.Logger
	srv   *http.Server
}

// NewServer builds the monitor server bound to addr.
func NewServer(addr string, store storage.Store, pipe Pipeline, log logger.Logger) *Server {
	if log == nil {
		log = &logger.NopLogger{}
	}

	s := &Server{
		store: store,
		pipe:  pipe,
		log:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/delivered", s.handleDelivered)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/cycle", s.handleCycle)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("monitor server listening", "monitor_addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	known, err := s.store.LoadKnown()
	if err != nil {
		s.log.ErrorObj("load known set failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	region := strings.TrimSpace(q.Get("region"))
	source := strings.TrimSpace(q.Get("source"))

	filtered := make([]domain.JobRecord, 0, len(known))
	for _, rec := range known {
		if category != "" && !strings.EqualFold(string(rec.Category), category) {
			continue
		}
		if region != "" && !strings.EqualFold(rec.Region, region) {
			continue
		}
		if source != "" && !strings.EqualFold(rec.Source, source) {
			continue
		}
		filtered = append(filtered, rec)
	}

	sortNewestFirst(filtered)
	filtered = capRecords(filtered, parseLimit(q.Get("limit")))

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(filtered),
		"jobs":  filtered,
	})
}

func (s *Server) handleDelivered(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	delivered, err := s.store.LoadDelivered()
	if err != nil {
		s.log.ErrorObj("load delivered set failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	sort.SliceStable(delivered, func(i, j int) bool {
		ti, iok := delivered[i].DeliveredTime()
		tj, jok := delivered[j].DeliveredTime()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})

	limit := parseLimit(r.URL.Query().Get("limit"))
	if limit > 0 && len(delivered) > limit {
		delivered = delivered[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(delivered),
		"delivered": delivered,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	known, err := s.store.LoadKnown()
	if err != nil {
		s.log.ErrorObj("load known set failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	delivered, err := s.store.LoadDelivered()
	if err != nil {
		s.log.ErrorObj("load delivered set failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	deliveredSet := dedup.NewDeliveredFingerprintSet(delivered)
	pending := 0
	perCategory := map[string]int{}
	perSource := map[string]int{}
	perRegion := map[string]int{}
	for _, rec := range known {
		perCategory[string(rec.Category)]++
		perSource[rec.Source]++
		if rec.Region != "" {
			perRegion[rec.Region]++
		}
		if !deliveredSet.Contains(rec.Fingerprint) {
			pending++
		}
	}

	stats := map[string]any{
		"total_jobs":      len(known),
		"total_delivered": len(delivered),
		"pending":         pending,
		"per_category":    perCategory,
		"per_source":      perSource,
		"per_region":      perRegion,
	}
	if s.pipe != nil {
		stats["pipeline"] = s.pipe.Snapshot()
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.pipe == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not attached")
		return
	}

	queued := s.pipe.TriggerCycle()
	s.log.InfoObj("cycle trigger requested", "monitor_trigger", map[string]any{"queued": queued})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued": queued,
	})
}

func sortNewestFirst(records []domain.JobRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, iok := records[i].ScrapedTime()
		tj, jok := records[j].ScrapedTime()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}

func capRecords(records []domain.JobRecord, limit int) []domain.JobRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
