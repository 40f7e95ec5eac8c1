package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/metrics"
	"fundamentals-lab/internal/narrative"
	"fundamentals-lab/internal/snapshot"
	"fundamentals-lab/internal/storage"
)

// analysisResponse bundles everything the dashboard needs for one company.
type analysisResponse struct {
	Ticker         string                   `json:"ticker"`
	Exchange       string                   `json:"exchange"`
	TargetMultiple float64                  `json:"targetMultiple"`
	Rows           []domain.FinancialRecord `json:"rows"`
	Series         []domain.Series          `json:"series"`
	Growth         []domain.GrowthPoint     `json:"growth"`
	GrowthSummary  domain.GrowthSummary     `json:"growthSummary"`
	FairValues     []domain.FairValuePoint  `json:"fairValues"`
	Narrative      *domain.Narrative        `json:"narrative"`
}

// snapshotResponse is the live valuation view of one company. History is
// null until the warehouse holds at least one snapshot for the company.
type snapshotResponse struct {
	Ticker           string                   `json:"ticker"`
	Exchange         string                   `json:"exchange"`
	Snapshot         domain.ValuationSnapshot `json:"snapshot"`
	BlendedFairValue float64                  `json:"blendedFairValue"`
	History          *snapshot.History        `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status                string  `json:"status"`
	Uptime                string  `json:"uptime"`
	Datasets              int     `json:"datasets"`
	DefaultTargetMultiple float64 `json:"defaultTargetMultiple"`
	NarrativeEnabled      bool    `json:"narrativeEnabled"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context())
	if err != nil {
		s.logger.Printf("status: list keys failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:                "running",
		Uptime:                time.Since(s.started).String(),
		Datasets:              len(keys),
		DefaultTargetMultiple: s.defaultMultiple,
		NarrativeEnabled:      s.narratives != nil && s.narratives.Enabled(),
	})
}

// handleCompanies serves the catalog: every persisted dataset sorted by key.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Printf("companies: list failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
		return
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Key() < datasets[j].Key()
	})
	writeJSON(w, http.StatusOK, domain.Catalog{Companies: datasets})
}

// handleCompany serves the full analysis for one company at the requested
// (or default) target multiple.
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	exchange := chi.URLParam(r, "exchange")
	ticker := chi.URLParam(r, "ticker")

	multiple, ok := s.resolveMultiple(w, r)
	if !ok {
		return
	}

	ds, err := s.store.Get(r.Context(), exchange, ticker)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "company not found"})
			return
		}
		s.logger.Printf("company %s:%s: get failed: %v", exchange, ticker, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
		return
	}

	growth := metrics.ComputeGrowth(ds.Rows)
	resp := analysisResponse{
		Ticker:         ds.Ticker,
		Exchange:       ds.Exchange,
		TargetMultiple: multiple,
		Rows:           ds.Rows,
		Series:         metrics.BuildSeries(ds.Rows),
		Growth:         growth,
		GrowthSummary:  metrics.SummarizeGrowth(growth),
		FairValues:     metrics.ComputeFairValues(ds.Rows, multiple),
	}

	// Commentary is cosmetic: a nil service or a failed generation leaves
	// the field null without affecting the response status.
	if s.narratives != nil {
		resp.Narrative = s.narratives.Annotate(r.Context(), narrative.Request{
			Ticker:         ds.Ticker,
			Exchange:       ds.Exchange,
			TargetMultiple: multiple,
			Rows:           ds.Rows,
			Growth:         resp.Growth,
			GrowthSummary:  resp.GrowthSummary,
			FairValues:     resp.FairValues,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSnapshot serves the live valuation for one company. Upstream
// failure degrades to zeroed fields and still returns 200; only a missing
// dataset is a 404.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	exchange := chi.URLParam(r, "exchange")
	ticker := chi.URLParam(r, "ticker")

	ds, err := s.store.Get(r.Context(), exchange, ticker)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "company not found"})
			return
		}
		s.logger.Printf("snapshot %s:%s: get failed: %v", exchange, ticker, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
		return
	}

	resp := snapshotResponse{Ticker: ds.Ticker, Exchange: ds.Exchange}
	if s.snapshots != nil {
		resp.Snapshot, resp.BlendedFairValue = s.snapshots.GetSnapshot(r.Context(), ds.Exchange, ds.Ticker)
		resp.History = s.snapshots.History(r.Context(), ds.Exchange, ds.Ticker)
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveMultiple reads the multiple query param, falling back to the
// server default. Unparseable and non-finite values are a 400.
func (s *Server) resolveMultiple(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("multiple")
	if raw == "" {
		return s.defaultMultiple, true
	}

	multiple, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(multiple) || math.IsInf(multiple, 0) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multiple parameter"})
		return 0, false
	}
	return multiple, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
