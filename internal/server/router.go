package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"panorama/internal/auth"
	"panorama/internal/export"
	"panorama/internal/report"
	"panorama/internal/runlog"
)

// Reports builds the report read models. *report.Service implements it.
type Reports interface {
	Hierarchy(ctx context.Context, tenant, survey string) (*report.Hierarchy, error)
	HeatMap(ctx context.Context, tenant, survey string) (*report.HeatMap, error)
	Consolidated(ctx context.Context, tenant, survey string) (*report.Consolidated, error)
	RateeAverage(ctx context.Context, tenant, survey string) (*report.RateeAverage, error)
	SubjectSummary(ctx context.Context, tenant, survey, subject string) (*report.SubjectSummary, error)
}

// ApiV1Router serves the report endpoints. Every /api/v1/ route requires a
// bearer token whose tenant claim scopes the request.
type ApiV1Router struct {
	reports Reports
	runs    *runlog.Repository
	sink    export.Sink
	auth    *auth.Manager
}

// Mux registers:
//   - GET /api/v1/surveys/{survey}/hierarchy
//   - GET /api/v1/surveys/{survey}/heatmap
//   - GET /api/v1/surveys/{survey}/consolidated
//   - POST /api/v1/surveys/{survey}/consolidated/export
//   - GET /api/v1/surveys/{survey}/ratee-average
//   - GET /api/v1/surveys/{survey}/subjects/{subject}/summary
//   - GET /api/v1/runs
//   - GET /healthz
func (ar *ApiV1Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/surveys/{survey}/hierarchy", ar.authenticate(ar.hierarchyHandler))
	mux.HandleFunc("GET /api/v1/surveys/{survey}/heatmap", ar.authenticate(ar.heatMapHandler))
	mux.HandleFunc("GET /api/v1/surveys/{survey}/consolidated", ar.authenticate(ar.consolidatedHandler))
	mux.HandleFunc("POST /api/v1/surveys/{survey}/consolidated/export", ar.authenticate(ar.exportHandler))
	mux.HandleFunc("GET /api/v1/surveys/{survey}/ratee-average", ar.authenticate(ar.rateeAverageHandler))
	mux.HandleFunc("GET /api/v1/surveys/{survey}/subjects/{subject}/summary", ar.authenticate(ar.summaryHandler))
	mux.HandleFunc("GET /api/v1/runs", ar.authenticate(ar.runsHandler))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// authenticate rejects requests without a valid bearer token and stores the
// claims in the request context.
func (ar *ApiV1Router) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := ar.auth.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			slog.Warn("Unauthorized request", "path", r.URL.Path, "error", err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

func tenantOf(r *http.Request) string {
	claims, _ := auth.ClaimsFrom(r.Context())
	return claims.Tenant
}

type sized interface {
	Len() int
}

// serveReport builds a report, records the run and writes the result.
func serveReport[T sized](ar *ApiV1Router, w http.ResponseWriter, r *http.Request, kind report.Kind, build func(ctx context.Context, tenant, survey string) (T, error)) {
	tenant := tenantOf(r)
	survey := r.PathValue("survey")
	start := time.Now()

	result, err := build(r.Context(), tenant, survey)

	run := runlog.Run{
		Report:     string(kind),
		SurveyID:   survey,
		SubjectID:  r.PathValue("subject"),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		run.Error = err.Error()
		ar.runs.Append(tenant, run)
		slog.Error("Unable to build report", "report", kind, "tenant", tenant, "survey", survey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report failed"})
		return
	}
	run.Rows = result.Len()
	ar.runs.Append(tenant, run)

	writeJSON(w, http.StatusOK, result)
}

func (ar *ApiV1Router) hierarchyHandler(w http.ResponseWriter, r *http.Request) {
	serveReport(ar, w, r, report.KindHierarchy, ar.reports.Hierarchy)
}

func (ar *ApiV1Router) heatMapHandler(w http.ResponseWriter, r *http.Request) {
	serveReport(ar, w, r, report.KindHeatMap, ar.reports.HeatMap)
}

func (ar *ApiV1Router) consolidatedHandler(w http.ResponseWriter, r *http.Request) {
	serveReport(ar, w, r, report.KindConsolidated, ar.reports.Consolidated)
}

func (ar *ApiV1Router) rateeAverageHandler(w http.ResponseWriter, r *http.Request) {
	serveReport(ar, w, r, report.KindRateeAverage, ar.reports.RateeAverage)
}

func (ar *ApiV1Router) summaryHandler(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	serveReport(ar, w, r, report.KindSubjectSummary, func(ctx context.Context, tenant, survey string) (*report.SubjectSummary, error) {
		return ar.reports.SubjectSummary(ctx, tenant, survey, subject)
	})
}

// exportResult is the response of the export endpoint.
type exportResult struct {
	SurveyID string `json:"surveyId"`
	Exported int    `json:"exported"`
}

func (e *exportResult) Len() int { return e.Exported }

// exportHandler appends the consolidated rows of a survey to the export sink.
func (ar *ApiV1Router) exportHandler(w http.ResponseWriter, r *http.Request) {
	serveReport(ar, w, r, report.KindExport, func(ctx context.Context, tenant, survey string) (*exportResult, error) {
		consolidated, err := ar.reports.Consolidated(ctx, tenant, survey)
		if err != nil {
			return nil, err
		}
		for _, row := range consolidated.Rows {
			ar.sink.Append(tenant, survey, row)
		}
		return &exportResult{SurveyID: survey, Exported: len(consolidated.Rows)}, nil
	})
}

// runsHandler lists the caller tenant's recent report runs, newest first.
// The optional limit query parameter caps the list.
func (ar *ApiV1Router) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			slog.Warn("Invalid runs limit", "limit", raw)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	runs, found := ar.runs.Recent(tenantOf(r), limit)
	if !found {
		runs = []runlog.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// NewApiV1Router creates the API v1 router. sink receives exported rows.
func NewApiV1Router(
	reports Reports,
	runs *runlog.Repository,
	sink export.Sink,
	authManager *auth.Manager,
) *ApiV1Router {
	return &ApiV1Router{
		reports: reports,
		runs:    runs,
		sink:    sink,
		auth:    authManager,
	}
}
