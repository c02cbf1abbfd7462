package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/analyzer"
	"github.com/BerylCAtieno/agreement-analyzer/internal/extractor"
	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/prescan"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

type TextExtractor interface {
	Extract(ctx context.Context, doc models.RawDocument) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Pipeline runs extract, pre-scan, analysis and aggregation for one document.
type Pipeline struct {
	extractor TextExtractor
	table     *prescan.Table
	analyzer  Analyzer
	timeout   time.Duration
	logger    *utils.Logger
}

func NewPipeline(ext TextExtractor, table *prescan.Table, an Analyzer, timeout time.Duration, logger *utils.Logger) *Pipeline {
	if table == nil {
		table = prescan.DefaultTable()
	}
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Pipeline{
		extractor: ext,
		table:     table,
		analyzer:  an,
		timeout:   timeout,
		logger:    logger,
	}
}

// Analyze returns the aggregated result or an *utils.AppError whose Code is
// the failure kind.
func (p *Pipeline) Analyze(ctx context.Context, doc models.RawDocument) (*models.FinalResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		p.logger.Warn("extraction failed", "filename", doc.Filename, "format", doc.Format, "error", err)
		return nil, toAppError(ctx, err)
	}
	p.logger.Info("text extracted",
		"filename", doc.Filename,
		"format", doc.Format,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	if strings.TrimSpace(text) == "" {
		p.logger.Warn("no text extracted", "filename", doc.Filename, "format", doc.Format)
		kind := analyzer.KindEmptyDocument
		return nil, utils.NewAppError(analysisStatus[kind], string(kind), analyzer.Message(kind), nil)
	}

	findings := prescan.Scan(text, p.table)
	p.logger.Debug("pre-scan complete", "matches", len(findings.Findings), "preliminary_score", findings.PreliminaryScore)

	result, err := p.analyzer.Analyze(ctx, models.AnalysisRequest{
		Text:         text,
		Findings:     findings,
		Jurisdiction: doc.Jurisdiction,
	})
	if err != nil {
		return nil, toAppError(ctx, err)
	}

	final := Aggregate(*result)
	p.logger.Info("analysis complete",
		"rating_score", final.RatingScore,
		"rating_text", final.RatingText,
		"red_flags", final.RedFlagsCount,
		"fair_clauses", final.FairClausesCount,
		"duration_ms", time.Since(start).Milliseconds())
	return final, nil
}

// Aggregate adds clause counts to an analysis result.
func Aggregate(result models.AnalysisResult) *models.FinalResult {
	return &models.FinalResult{
		AnalysisResult:   result,
		RedFlagsCount:    len(result.RedFlags),
		FairClausesCount: len(result.FairClauses),
	}
}

var analysisStatus = map[analyzer.Kind]int{
	analyzer.KindEmptyDocument:      http.StatusBadRequest,
	analyzer.KindContentBlocked:     http.StatusUnprocessableEntity,
	analyzer.KindMalformedResponse:  http.StatusBadGateway,
	analyzer.KindSchemaViolation:    http.StatusBadGateway,
	analyzer.KindInvalidCredentials: http.StatusInternalServerError,
	analyzer.KindQuotaExceeded:      http.StatusTooManyRequests,
	analyzer.KindNetwork:            http.StatusServiceUnavailable,
	analyzer.KindUnknown:            http.StatusBadGateway,
	analyzer.KindTimeout:            http.StatusGatewayTimeout,
}

var extractionStatus = map[extractor.Kind]int{
	extractor.KindDecode:         http.StatusBadRequest,
	extractor.KindEncrypted:      http.StatusBadRequest,
	extractor.KindUnsupported:    http.StatusBadRequest,
	extractor.KindOCRUnavailable: http.StatusUnprocessableEntity,
}

func toAppError(ctx context.Context, err error) *utils.AppError {
	if kind, ok := extractor.KindOf(err); ok {
		return utils.NewAppError(extractionStatus[kind], string(kind), extractor.Message(kind), err)
	}
	if kind, ok := analyzer.KindOf(err); ok {
		return utils.NewAppError(analysisStatus[kind], string(kind), analyzer.Message(kind), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind := analyzer.KindTimeout
		return utils.NewAppError(analysisStatus[kind], string(kind), analyzer.Message(kind), err)
	}
	kind := analyzer.KindUnknown
	return utils.NewAppError(analysisStatus[kind], string(kind), analyzer.Message(kind), err)
}
