package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error()}
	code := http.StatusInternalServerError

	var nb *common.NoBenchmarkError
	var verr *ingest.ValidationError
	switch {
	case errors.As(err, &nb):
		code = http.StatusNotFound
		body.Error = nb.UserMessage()
	case errors.As(err, &verr):
		code = http.StatusBadRequest
		body.Error = "upload failed validation"
		body.Details = verr.Errors
	case errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrMissingMetric),
		errors.Is(err, common.ErrNoTransactions):
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// GET /v1/segments
func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) error {
	segments, err := s.store.ListSegments(r.Context())
	if err != nil {
		return err
	}
	if segments == nil {
		segments = []model.Segment{}
	}
	writeJSON(w, http.StatusOK, segments)
	return nil
}

type aggregateRequest struct {
	Rows        []ingest.Row       `json:"rows"`
	Metrics     map[string]float64 `json:"metrics"`
	CuisineType string             `json:"cuisine_type"`
	DiningModel string             `json:"dining_model"`
}

// POST /v1/analyze/aggregate
//
// Accepts a daily upload as text/csv, or a JSON body carrying either daily
// rows or one set of aggregate metrics.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	source := string(model.SourceAggregate)

	if isCSV(r) {
		rows, errs := ingest.ReadRestaurantCSV(r.Body)
		if len(errs) > 0 {
			return &ingest.ValidationError{Errors: errs}
		}
		res, err := s.pipeline.RunDaily(r.Context(), rows)
		return s.respond(w, source, res, err)
	}

	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if len(req.Rows) > 0 {
		rows, errs := ingest.ReadRestaurantRows(req.Rows)
		if len(errs) > 0 {
			return &ingest.ValidationError{Errors: errs}
		}
		res, err := s.pipeline.RunDaily(r.Context(), rows)
		return s.respond(w, source, res, err)
	}

	if req.CuisineType == "" || req.DiningModel == "" {
		return badRequest("cuisine_type and dining_model are required")
	}
	actual := model.NewMetricRecord(model.RecordActual, model.Segment{
		CuisineType: req.CuisineType,
		DiningModel: req.DiningModel,
	})
	for k, v := range req.Metrics {
		actual.Set(k, v)
	}
	res, err := s.pipeline.RunAggregate(r.Context(), actual)
	return s.respond(w, source, res, err)
}

type transactionsRequest struct {
	CuisineType  string       `json:"cuisine_type"`
	DiningModel  string       `json:"dining_model"`
	Transactions []ingest.Row `json:"transactions"`
}

// POST /v1/analyze/transactions
//
// Accepts text/csv with cuisine_type and dining_model query parameters, or a
// JSON body carrying the segment and the transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	var (
		segment model.Segment
		batch   *ingest.TransactionBatch
		err     error
	)
	if isCSV(r) {
		q := r.URL.Query()
		segment = model.Segment{CuisineType: q.Get("cuisine_type"), DiningModel: q.Get("dining_model")}
		if segment.CuisineType == "" || segment.DiningModel == "" {
			return badRequest("cuisine_type and dining_model query parameters are required")
		}
		batch, err = ingest.ReadTransactionCSV(r.Body)
	} else {
		var req transactionsRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			return badRequest("invalid JSON body: %v", decodeErr)
		}
		segment = model.Segment{CuisineType: req.CuisineType, DiningModel: req.DiningModel}
		if segment.CuisineType == "" || segment.DiningModel == "" {
			return badRequest("cuisine_type and dining_model are required")
		}
		batch, err = ingest.ReadTransactionRows(req.Transactions)
	}
	if err != nil {
		return err
	}

	res, err := s.pipeline.RunTransactions(r.Context(), batch.Transactions, segment)
	if res != nil {
		res.Warnings = append(append([]string(nil), batch.Validation.Warnings...), res.Warnings...)
	}
	return s.respond(w, string(model.SourceTransactions), res, err)
}

func (s *Server) respond(w http.ResponseWriter, source string, res *pipeline.Result, err error) error {
	outcome := "error"
	if res != nil && res.Outcome != "" {
		outcome = string(res.Outcome)
	}
	s.metrics.recordAnalysis(source, outcome)

	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/runs?limit=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) error {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("limit must be a non-negative integer")
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
	return nil
}

// GET /v1/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) error {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	res, err := pipeline.DecodeResult(run.Result)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func isCSV(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "text/csv"
}
