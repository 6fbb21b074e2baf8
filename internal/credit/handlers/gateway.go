package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

// maxDocumentSize bounds the body of POST /v1/analyses.
const maxDocumentSize = 1 << 20

// gateway serves the REST routes of the analysis service in process.
type gateway struct {
	service AnalysisController
	logger  *zap.Logger
}

// NewGatewayMux builds the REST surface: create, fetch, render and list
// analyses, plus a health probe.
func NewGatewayMux(service AnalysisController, logger *zap.Logger) (*runtime.ServeMux, error) {
	g := &gateway{service: service, logger: logger.Named("http_gateway")}
	mux := runtime.NewServeMux()
	routes := []struct {
		method, pattern string
		handler         runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/analyses", g.analyze},
		{http.MethodGet, "/v1/analyses/{id}", g.getAnalysis},
		{http.MethodGet, "/v1/analyses/{id}/report", g.renderReport},
		{http.MethodGet, "/v1/companies/{cnpj}/analyses", g.listByCNPJ},
		{http.MethodGet, "/healthz", g.healthz},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return mux, nil
}

func (g *gateway) analyze(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		g.writeError(w, fmt.Errorf("%w: failed to read body", e.ErrInvalidInput))
		return
	}
	if len(body) > maxDocumentSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("too_large", "document exceeds 1 MiB"))
		return
	}
	analysis, err := g.service.Analyze(r.Context(), body)
	if err != nil {
		g.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/analyses/"+analysis.ID.String())
	writeJSON(w, http.StatusCreated, analysis)
}

func (g *gateway) getAnalysis(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		g.writeError(w, fmt.Errorf("%w: invalid analysis ID", e.ErrInvalidInput))
		return
	}
	analysis, err := g.service.GetAnalysis(r.Context(), id)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (g *gateway) renderReport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		g.writeError(w, fmt.Errorf("%w: invalid analysis ID", e.ErrInvalidInput))
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		g.writeError(w, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}
	body, err := g.service.RenderReport(r.Context(), id, format)
	if err != nil {
		g.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		g.logger.Warn("Failed to write report", zap.Error(err))
	}
}

func (g *gateway) listByCNPJ(w http.ResponseWriter, r *http.Request, params map[string]string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.writeError(w, fmt.Errorf("%w: invalid limit %q", e.ErrInvalidInput, raw))
			return
		}
		limit = n
	}
	list, err := g.service.ListByCNPJ(r.Context(), params["cnpj"], limit)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": list})
}

func (g *gateway) healthz(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError answers stage failures with 422 and their tagged shape; other
// errors take the HTTP status of their gRPC code.
func (g *gateway) writeError(w http.ResponseWriter, err error) {
	if se, ok := e.As(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, stageErrorBody(se))
		return
	}
	st := status.Convert(mapServiceError(g.logger, err))
	kind := "internal_error"
	switch {
	case errors.Is(err, e.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, e.ErrInvalidInput):
		kind = "invalid_request"
	}
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), errorBody(kind, st.Message()))
}

func errorBody(kind, message string) map[string]string {
	return map[string]string{"status": "error", "error": kind, "message": message}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
