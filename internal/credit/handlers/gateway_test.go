package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/kyp/internal/credit/auth"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/report"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newGateway(t *testing.T, ctrl *mockAnalysisController) http.Handler {
	t.Helper()
	mux, err := NewGatewayMux(ctrl, zaptest.NewLogger(t))
	require.NoError(t, err)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGateway_Analyze(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		body       string
		analyze    func(context.Context, []byte) (*models.Analysis, error)
		wantStatus int
		wantKey    string
		wantValue  any
	}{
		{
			name: "created",
			body: `{"empresa":{}}`,
			analyze: func(_ context.Context, _ []byte) (*models.Analysis, error) {
				return sampleAnalysis(id), nil
			},
			wantStatus: http.StatusCreated,
			wantKey:    "id",
			wantValue:  id.String(),
		},
		{
			name: "stage error",
			body: `{`,
			analyze: func(_ context.Context, _ []byte) (*models.Analysis, error) {
				return nil, e.New(e.KindInvalidJSON, "JSON inválido").WithStage("extractor")
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantKey:    "error",
			wantValue:  "invalid_json",
		},
		{
			name: "internal error",
			body: `{}`,
			analyze: func(_ context.Context, _ []byte) (*models.Analysis, error) {
				return nil, errors.New("db down")
			},
			wantStatus: http.StatusInternalServerError,
			wantKey:    "error",
			wantValue:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGateway(t, &mockAnalysisController{analyzeFunc: tt.analyze})
			req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantValue, decodeBody(t, rec)[tt.wantKey])
		})
	}
}

func TestGateway_Analyze_LocationAndSize(t *testing.T) {
	id := uuid.New()
	h := newGateway(t, &mockAnalysisController{
		analyzeFunc: func(_ context.Context, _ []byte) (*models.Analysis, error) {
			return sampleAnalysis(id), nil
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{}")))
	assert.Equal(t, "/v1/analyses/"+id.String(), rec.Header().Get("Location"))

	big := strings.Repeat(" ", maxDocumentSize+1)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGateway_GetAnalysis(t *testing.T) {
	id := uuid.New()
	h := newGateway(t, &mockAnalysisController{
		getAnalysisFunc: func(_ context.Context, got uuid.UUID) (*models.Analysis, error) {
			if got != id {
				return nil, fmt.Errorf("%w: analysis %s", e.ErrNotFound, got)
			}
			return sampleAnalysis(id), nil
		},
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/v1/analyses/" + id.String(), http.StatusOK},
		{"/v1/analyses/" + uuid.NewString(), http.StatusNotFound},
		{"/v1/analyses/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGateway_RenderReport(t *testing.T) {
	id := uuid.New()
	var gotFormat report.Format
	h := newGateway(t, &mockAnalysisController{
		renderReportFunc: func(_ context.Context, _ uuid.UUID, format report.Format) ([]byte, error) {
			gotFormat = format
			return []byte("<h1>ok</h1>"), nil
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/"+id.String()+"/report?format=html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.FormatHTML, gotFormat)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>ok</h1>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/"+id.String()+"/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.FormatMarkdown, gotFormat)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/"+id.String()+"/report?format=docx", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_ListByCNPJ(t *testing.T) {
	var gotCNPJ string
	var gotLimit int
	h := newGateway(t, &mockAnalysisController{
		listByCNPJFunc: func(_ context.Context, cnpj string, limit int) ([]*models.Analysis, error) {
			gotCNPJ, gotLimit = cnpj, limit
			return []*models.Analysis{sampleAnalysis(uuid.New())}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/companies/11222333000181/analyses?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11222333000181", gotCNPJ)
	assert.Equal(t, 5, gotLimit)
	list, ok := decodeBody(t, rec)["analyses"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/companies/11222333000181/analyses?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_Healthz(t *testing.T) {
	h := newGateway(t, &mockAnalysisController{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestGateway_AuthProtectsAnalyze(t *testing.T) {
	const secret = "gateway-secret"
	ctrl := &mockAnalysisController{
		analyzeFunc: func(_ context.Context, _ []byte) (*models.Analysis, error) {
			return sampleAnalysis(uuid.New()), nil
		},
	}
	h := auth.HTTPMiddleware(newGateway(t, ctrl), secret)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{}")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateToken("analyst", secret, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
