// Package testutil builds small in-memory PDF and DOCX fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// TextPDF returns a single-page PDF whose text layer is text.
func TextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	content := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"
	return buildPDF(1, content, "")
}

// BlankPDF returns a single-page PDF with no text layer, like a scan.
func BlankPDF() []byte {
	return BlankPDFPages(1)
}

// BlankPDFPages returns a scan-like PDF with n pages.
func BlankPDFPages(n int) []byte {
	return buildPDF(n, "q\nQ", "")
}

// EncryptedPDF returns a PDF whose trailer declares an encryption dictionary.
func EncryptedPDF() []byte {
	return buildPDF(1, "BT\n/F1 12 Tf\n72 720 Td\n(secret) Tj\nET",
		" /Encrypt << /Filter /Standard /V 1 /R 2 /O (owner) /U (user) /P -4 >>")
}

// buildPDF lays out 1 catalog, 2 page tree, 3 font, 4 content, then one page
// object per page, all pages sharing the content stream.
func buildPDF(pages int, content, trailerExtra string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	size := 5 + pages
	offsets := make([]int, size)

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 5+i)
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pages)

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")

	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)

	for i := 0; i < pages; i++ {
		offsets[5+i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", 5+i)
	}

	xrefOffset := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", size)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", size, trailerExtra, xrefOffset)

	return []byte(b.String())
}

// DOCX returns a minimal WordprocessingML package with one paragraph per entry.
func DOCX(paragraphs ...string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t xml:space=\"preserve\">")
		body.WriteString(xmlEscape(p))
		body.WriteString("</w:t></w:r></w:p>")
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	return Zip(map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":   document,
	})
}

// Zip writes files in a stable order with [Content_Types].xml first.
func Zip(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var names []string
	for name := range files {
		if name != "[Content_Types].xml" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := files["[Content_Types].xml"]; ok {
		names = append([]string{"[Content_Types].xml"}, names...)
	}

	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
