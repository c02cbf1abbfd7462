package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/analyzer"
	"github.com/BerylCAtieno/agreement-analyzer/internal/extractor"
	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/prescan"
	"github.com/BerylCAtieno/agreement-analyzer/internal/testutil"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
	wait    bool
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (*analyzer.Completion, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.wait {
		<-ctx.Done()
		return nil, fmt.Errorf("request aborted: %w", ctx.Err())
	}
	if f.err != nil {
		return nil, f.err
	}
	return &analyzer.Completion{Text: f.reply}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const reply = "```json\n" + `{
  "ratingScore": 38,
  "ratingText": "DANGER",
  "shortSummary": "Heavily favours the landlord.",
  "aiSummary": "Repairs and deposit terms are one-sided.",
  "redFlags": [
    {"priority": "high", "title": "Repairs", "issue": "Tenant pays all repairs", "recommendation": "Limit to minor repairs"},
    {"priority": "high", "title": "Deposit", "issue": "Deposit is non-refundable", "recommendation": "Make it refundable"},
    {"priority": "medium", "title": "Entry", "issue": "Entry without notice", "recommendation": "Require 24 hours notice"}
  ],
  "fairClauses": [
    {"title": "Rent", "recommendation": "Rent is fixed for the term"}
  ],
  "recommendations": ["Negotiate the repair clause", "Ask for a refundable deposit"]
}` + "\n```"

func newTestPipeline(client analyzer.Completer, timeout time.Duration) *Pipeline {
	return NewPipeline(
		extractor.New(nil, nil),
		prescan.DefaultTable(),
		analyzer.NewOrchestrator(client),
		timeout,
		utils.NewDiscardLogger(),
	)
}

func appError(t *testing.T, err error) *utils.AppError {
	t.Helper()
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v (%T) is not an AppError", err, err)
	}
	return appErr
}

func TestPipelineEndToEnd(t *testing.T) {
	client := &fakeCompleter{reply: reply}
	p := newTestPipeline(client, time.Second)

	text := "The tenant is responsible for all repairs. The security deposit is non-refundable."
	result, err := p.Analyze(context.Background(), models.RawDocument{
		Data:         testutil.TextPDF(text),
		Format:       models.FormatPDF,
		Filename:     "lease.pdf",
		Jurisdiction: "Kerala",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if client.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", client.callCount())
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, `"preliminary_score":84`) {
		t.Errorf("prompt is missing the preliminary score:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Kerala, India") {
		t.Errorf("prompt is missing the jurisdiction:\n%s", prompt)
	}

	if result.RatingScore != 38 || result.RatingText != "DANGER" {
		t.Errorf("rating = %d %s", result.RatingScore, result.RatingText)
	}
	if result.RedFlagsCount != 3 || result.FairClausesCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", result.RedFlagsCount, result.FairClausesCount)
	}
}

func TestPipelineEmptyTextSkipsAnalysis(t *testing.T) {
	client := &fakeCompleter{reply: reply}
	p := newTestPipeline(client, time.Second)

	for _, data := range [][]byte{{}, []byte("  \n\t ")} {
		_, err := p.Analyze(context.Background(), models.RawDocument{Data: data, Format: models.FormatPlain, Filename: "empty.txt"})
		appErr := appError(t, err)
		if appErr.Code != string(analyzer.KindEmptyDocument) || appErr.StatusCode != http.StatusBadRequest {
			t.Errorf("error = %+v", appErr)
		}
	}
	if client.callCount() != 0 {
		t.Fatalf("calls = %d, want 0", client.callCount())
	}
}

type textExtractor string

func (t textExtractor) Extract(ctx context.Context, doc models.RawDocument) (string, error) {
	return string(t), nil
}

type countingAnalyzer struct{ calls int }

func (c *countingAnalyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	c.calls++
	return &models.AnalysisResult{}, nil
}

func TestPipelineBlankExtractionStopsBeforeAnalyzer(t *testing.T) {
	an := &countingAnalyzer{}
	p := NewPipeline(textExtractor(" \r\n\t "), nil, an, time.Second, nil)

	_, err := p.Analyze(context.Background(), models.RawDocument{Data: []byte("scan.pdf"), Format: models.FormatPDF})
	appErr := appError(t, err)
	if appErr.Code != string(analyzer.KindEmptyDocument) || appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("error = %+v", appErr)
	}
	if an.calls != 0 {
		t.Fatalf("analyzer calls = %d, want 0", an.calls)
	}
}

func TestPipelineExtractionErrorSkipsAnalysis(t *testing.T) {
	client := &fakeCompleter{reply: reply}
	p := newTestPipeline(client, time.Second)

	tests := []struct {
		name       string
		doc        models.RawDocument
		wantCode   string
		wantStatus int
	}{
		{"encrypted pdf", models.RawDocument{Data: testutil.EncryptedPDF(), Format: models.FormatPDF}, string(extractor.KindEncrypted), http.StatusBadRequest},
		{"scanned pdf without ocr", models.RawDocument{Data: testutil.BlankPDF(), Format: models.FormatPDF}, string(extractor.KindOCRUnavailable), http.StatusUnprocessableEntity},
		{"invalid utf-8", models.RawDocument{Data: []byte{'a', 0xc3, 0x28}, Format: models.FormatPlain}, string(extractor.KindDecode), http.StatusBadRequest},
		{"broken docx", models.RawDocument{Data: []byte("not a zip"), Format: models.FormatDOCX}, string(extractor.KindUnsupported), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Analyze(context.Background(), tt.doc)
			appErr := appError(t, err)
			if appErr.Code != tt.wantCode || appErr.StatusCode != tt.wantStatus {
				t.Errorf("error = %d %s, want %d %s", appErr.StatusCode, appErr.Code, tt.wantStatus, tt.wantCode)
			}
			if appErr.Message == "" {
				t.Error("missing message")
			}
		})
	}
	if client.callCount() != 0 {
		t.Fatalf("calls = %d, want 0", client.callCount())
	}
}

func TestPipelineAnalysisErrors(t *testing.T) {
	tests := []struct {
		name       string
		client     *fakeCompleter
		wantCode   analyzer.Kind
		wantStatus int
	}{
		{"quota", &fakeCompleter{err: &analyzer.ClientError{Class: analyzer.ClassQuota, StatusCode: 429}}, analyzer.KindQuotaExceeded, http.StatusTooManyRequests},
		{"credentials", &fakeCompleter{err: &analyzer.ClientError{Class: analyzer.ClassCredentials, StatusCode: 401}}, analyzer.KindInvalidCredentials, http.StatusInternalServerError},
		{"network", &fakeCompleter{err: &analyzer.ClientError{Class: analyzer.ClassNetwork}}, analyzer.KindNetwork, http.StatusServiceUnavailable},
		{"malformed", &fakeCompleter{reply: "not json at all"}, analyzer.KindMalformedResponse, http.StatusBadGateway},
		{"schema", &fakeCompleter{reply: `{"ratingText": "SAFE"}`}, analyzer.KindSchemaViolation, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.client, time.Second)
			_, err := p.Analyze(context.Background(), models.RawDocument{Data: []byte("A short lease."), Format: models.FormatPlain})
			appErr := appError(t, err)
			if appErr.Code != string(tt.wantCode) || appErr.StatusCode != tt.wantStatus {
				t.Errorf("error = %d %s, want %d %s", appErr.StatusCode, appErr.Code, tt.wantStatus, tt.wantCode)
			}
			if appErr.Message != analyzer.Message(tt.wantCode) {
				t.Errorf("message = %q", appErr.Message)
			}
			if tt.client.callCount() != 1 {
				t.Errorf("calls = %d, want 1", tt.client.callCount())
			}
		})
	}
}

func TestPipelineTimeout(t *testing.T) {
	client := &fakeCompleter{wait: true}
	p := newTestPipeline(client, 20*time.Millisecond)

	_, err := p.Analyze(context.Background(), models.RawDocument{Data: []byte("A short lease."), Format: models.FormatPlain})
	appErr := appError(t, err)
	if appErr.Code != string(analyzer.KindTimeout) || appErr.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("error = %+v", appErr)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		result    models.AnalysisResult
		wantFlags int
		wantFair  int
	}{
		{"empty", models.AnalysisResult{RedFlags: []models.RedFlag{}, FairClauses: []models.FairClause{}}, 0, 0},
		{"nil sequences", models.AnalysisResult{}, 0, 0},
		{"three and one", models.AnalysisResult{
			RedFlags:    []models.RedFlag{{Title: "a"}, {Title: "b"}, {Title: "c"}},
			FairClauses: []models.FairClause{{Title: "d"}},
		}, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.RatingScore = 55
			tt.result.ShortSummary = "summary"
			got := Aggregate(tt.result)
			if got.RedFlagsCount != tt.wantFlags || got.FairClausesCount != tt.wantFair {
				t.Errorf("counts = %d/%d, want %d/%d", got.RedFlagsCount, got.FairClausesCount, tt.wantFlags, tt.wantFair)
			}
			if got.RatingScore != 55 || got.ShortSummary != "summary" {
				t.Errorf("fields not passed through: %+v", got)
			}
		})
	}
}
