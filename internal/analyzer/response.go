package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

var errNotJSON = errors.New("response is not valid JSON")

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, and surrounding whitespace.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		tag := strings.TrimSpace(content[:nl])
		if tag == "" || isFenceTag(tag) {
			content = content[nl+1:]
		}
	} else {
		content = strings.TrimPrefix(content, "json")
	}

	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// parseResult strips fences, validates and decodes a model reply. The
// returned error is always an *Error of kind MalformedResponse or
// SchemaViolation.
func parseResult(raw string) (*models.AnalysisResult, []string, error) {
	payload := []byte(StripFences(raw))
	if !json.Valid(payload) {
		return nil, nil, newError(KindMalformedResponse, errNotJSON)
	}

	doc, err := decodeDocument(payload)
	if err != nil {
		return nil, nil, newError(KindSchemaViolation, fmt.Errorf("response is not a JSON object: %w", err))
	}

	changed := sanitizeResult(doc)
	if err := validateResult(doc); err != nil {
		return nil, changed, newError(KindSchemaViolation, err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, changed, newError(KindMalformedResponse, err)
	}

	var result models.AnalysisResult
	dec := json.NewDecoder(bytes.NewReader(normalized))
	if err := dec.Decode(&result); err != nil {
		return nil, changed, newError(KindSchemaViolation, err)
	}

	if result.RedFlags == nil {
		result.RedFlags = []models.RedFlag{}
	}
	if result.FairClauses == nil {
		result.FairClauses = []models.FairClause{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}

	return &result, changed, nil
}
