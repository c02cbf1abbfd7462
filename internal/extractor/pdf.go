package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

var encryptMarker = []byte("/Encrypt")

// ExtractPDF concatenates the text layer of every page in order. Encrypted
// documents are rejected before any page is read. A PDF without a text layer
// yields empty text and no error.
func ExtractPDF(data []byte) (text string, err error) {
	defer func() {
		// the parser panics on some malformed object graphs
		if r := recover(); r != nil {
			text = ""
			err = newError(KindUnsupported, models.FormatPDF, fmt.Errorf("pdf parser: %v", r))
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || bytes.Contains(data, encryptMarker) {
			return "", newError(KindEncrypted, models.FormatPDF, err)
		}
		return "", newError(KindUnsupported, models.FormatPDF, fmt.Errorf("failed to create PDF reader: %w", err))
	}

	if !pdfReader.Trailer().Key("Encrypt").IsNull() {
		return "", newError(KindEncrypted, models.FormatPDF, nil)
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(pageText)
	}

	return textBuilder.String(), nil
}
