package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BerylCAtieno/agreement-analyzer/internal/middleware"
	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

type stubService struct {
	owner string
}

func (s *stubService) AnalyzeDocument(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	return &models.AnalyzeResponse{ID: "x", FinalResult: &models.FinalResult{}}, nil
}

func (s *stubService) History(ctx context.Context, owner string) ([]models.HistoryEntry, error) {
	s.owner = owner
	return []models.HistoryEntry{}, nil
}

func (s *stubService) Analysis(ctx context.Context, id string) (*models.HistoryEntry, error) {
	return &models.HistoryEntry{ID: id}, nil
}

func (s *stubService) Health(ctx context.Context) error { return nil }

func TestRoutes(t *testing.T) {
	svc := &stubService{}
	h := NewRouter(svc, 0, utils.NewDiscardLogger())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/history/tenant@example.com", http.StatusOK},
		{http.MethodGet, "/api/v1/analyses/a1", http.StatusOK},
		{http.MethodOptions, "/api/v1/analyze", http.StatusNoContent},
		{http.MethodGet, "/api/v1/analyze", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/health", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/v1/history/tenant@example.com", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/analyses/a1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/documents/1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if svc.owner != "tenant@example.com" {
		t.Errorf("history owner = %q", svc.owner)
	}
}

func TestRoutesSetRequestID(t *testing.T) {
	h := NewRouter(&stubService{}, 0, utils.NewDiscardLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
