package extractor

import (
	"mime"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/h2non/filetype"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

// FormatFromName maps a filename and reported content type to a format tag.
// Anything unrecognized is treated as plain text.
func FormatFromName(filename, contentType string) models.Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FormatPDF
	case ".docx":
		return models.FormatDOCX
	case ".txt", ".text":
		return models.FormatPlain
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch mediaType {
	case "application/pdf":
		return models.FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.wordprocessingml",
		"application/docx",
		"application/x-docx":
		return models.FormatDOCX
	}
	return models.FormatPlain
}

// ResolveFormat returns the declared format unless the leading bytes are
// unmistakably PDF or DOCX. Content sniffing never downgrades to plain.
func ResolveFormat(declared models.Format, data []byte) models.Format {
	switch declared {
	case models.FormatPlain, models.FormatPDF, models.FormatDOCX:
	default:
		declared = models.FormatPlain
	}

	if len(data) == 0 {
		return declared
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return declared
	}
	switch kind.Extension {
	case "pdf":
		return models.FormatPDF
	case "docx":
		return models.FormatDOCX
	}
	return declared
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
