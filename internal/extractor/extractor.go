package extractor

import (
	"context"
	"errors"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/ocr"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

// Fallback recognizes text from a PDF whose text layer is empty.
type Fallback interface {
	RasterizeAndRecognize(ctx context.Context, pdf []byte) (string, error)
}

type Extractor struct {
	fallback Fallback
	logger   *utils.Logger
}

// New builds an Extractor. A nil fallback makes scanned PDFs fail with
// KindOCRUnavailable.
func New(fallback Fallback, logger *utils.Logger) *Extractor {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Extractor{fallback: fallback, logger: logger}
}

// Extract turns raw document bytes into UTF-8 text. The returned text may be
// empty; deciding what to do with empty text is the caller's job.
func (e *Extractor) Extract(ctx context.Context, doc models.RawDocument) (string, error) {
	format := ResolveFormat(doc.Format, doc.Data)
	if format != doc.Format {
		e.logger.Debug("format resolved from content",
			"declared", doc.Format,
			"resolved", format,
			"filename", doc.Filename)
	}

	switch format {
	case models.FormatPDF:
		return e.extractPDF(ctx, doc.Data)
	case models.FormatDOCX:
		return ExtractDOCX(doc.Data)
	default:
		return ExtractTXT(doc.Data)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	text, err := ExtractPDF(data)
	if err != nil {
		return "", err
	}
	if !isBlank(text) {
		return text, nil
	}

	if e.fallback == nil {
		return "", newError(KindOCRUnavailable, models.FormatPDF, ocr.ErrUnavailable)
	}

	e.logger.Info("pdf has no text layer, running ocr", "bytes", len(data))
	text, err = e.fallback.RasterizeAndRecognize(ctx, data)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrUnavailable):
			return "", newError(KindOCRUnavailable, models.FormatPDF, err)
		case ctx.Err() != nil:
			return "", ctx.Err()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			return "", newError(KindUnsupported, models.FormatPDF, err)
		}
	}
	return text, nil
}
