package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

const documentPart = "word/document.xml"

// ExtractDOCX returns the text of every paragraph in document order, joined
// with newlines. Empty paragraphs are kept.
func ExtractDOCX(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(KindUnsupported, models.FormatDOCX, fmt.Errorf("failed to read DOCX as ZIP: %w", err))
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == documentPart {
			documentFile = file
			break
		}
	}
	if documentFile == nil {
		return "", newError(KindUnsupported, models.FormatDOCX, fmt.Errorf("%s not found in DOCX", documentPart))
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return "", newError(KindUnsupported, models.FormatDOCX, fmt.Errorf("failed to open %s: %w", documentPart, err))
	}
	defer xmlFile.Close()

	paragraphs, err := readParagraphs(xmlFile)
	if err != nil {
		return "", newError(KindUnsupported, models.FormatDOCX, fmt.Errorf("failed to parse %s: %w", documentPart, err))
	}

	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs walks the WordprocessingML token stream. Paragraphs nested
// inside another paragraph (text boxes) are folded into the outer one.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		props      int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "pPr", "rPr":
				props++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 && props == 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 && props == 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					paragraphs = append(paragraphs, current.String())
					current.Reset()
				}
			case "pPr", "rPr":
				props--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
