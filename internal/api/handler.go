// Package api serves stored experiment runs over HTTP.
package api

import (
	"Go2WlanSpectra/internal/query"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// Handler holds the dependencies for API handlers.
type Handler struct {
	querier query.Querier
}

// NewRouter returns the API routes served over q.
func NewRouter(q query.Querier) *mux.Router {
	h := &Handler{querier: q}
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/runs", h.listRunsHandler).Methods("GET")
	v1.HandleFunc("/runs/{run}/totals", h.totalsHandler).Methods("GET")
	v1.HandleFunc("/runs/{run}/cells", h.cellsHandler).Methods("GET")
	v1.HandleFunc("/runs/{run}/stations", h.stationsHandler).Methods("GET")
	return r
}

func (h *Handler) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid since: %v", err), http.StatusBadRequest)
			return
		}
		since = t
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.querier.ListRuns(r.Context(), since, limit)
	writeResult(w, runs, err)
}

func (h *Handler) totalsHandler(w http.ResponseWriter, r *http.Request) {
	totals, err := h.querier.RunTotals(r.Context(), mux.Vars(r)["run"])
	writeResult(w, totals, err)
}

func (h *Handler) cellsHandler(w http.ResponseWriter, r *http.Request) {
	cells, err := h.querier.RunCells(r.Context(), mux.Vars(r)["run"])
	writeResult(w, cells, err)
}

func (h *Handler) stationsHandler(w http.ResponseWriter, r *http.Request) {
	var filter query.StationFilter
	if s := r.URL.Query().Get("cell"); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			http.Error(w, "invalid cell", http.StatusBadRequest)
			return
		}
		filter.Cell = uint16(n)
	}
	filter.Generation = r.URL.Query().Get("generation")

	stations, err := h.querier.RunStations(r.Context(), mux.Vars(r)["run"], filter)
	writeResult(w, stations, err)
}

func writeResult(w http.ResponseWriter, v any, err error) {
	if errors.Is(err, query.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query runs: %v", err), http.StatusInternalServerError)
		return
	}

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
