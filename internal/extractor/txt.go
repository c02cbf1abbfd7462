package extractor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

var errInvalidUTF8 = errors.New("content is not valid UTF-8")

// ExtractTXT decodes plain text. A UTF-8 BOM is stripped and UTF-16 is
// accepted when it carries a BOM; anything else must be valid UTF-8.
// Empty input yields empty text.
func ExtractTXT(data []byte) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", newError(KindDecode, models.FormatPlain, fmt.Errorf("failed to decode text: %w", err))
	}
	return normalizeNewlines(text), nil
}

func decodeText(data []byte) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
		if !utf8.Valid(data) {
			return "", errInvalidUTF8
		}
		return string(data), nil
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return decodeUTF16(data, unicode.LittleEndian)
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return decodeUTF16(data, unicode.BigEndian)
	}

	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}

func decodeUTF16(data []byte, order unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(order, unicode.ExpectBOM).NewDecoder()
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
