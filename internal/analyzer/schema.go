package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resultSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["ratingScore", "ratingText"],
  "properties": {
    "ratingScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "ratingText": {"enum": ["CRITICAL", "DANGER", "CAUTION", "SAFE", "PERFECT"]},
    "shortSummary": {"type": "string"},
    "aiSummary": {"type": "string"},
    "redFlags": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "priority": {"enum": ["high", "medium", "low"]},
          "title": {"type": "string"},
          "issue": {"type": "string"},
          "recommendation": {"type": "string"}
        }
      }
    },
    "fairClauses": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "recommendation": {"type": "string"}
        }
      }
    },
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func resultSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("result.json", strings.NewReader(resultSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("result.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// validateResult checks a sanitized document against the result schema.
func validateResult(doc map[string]any) error {
	s, err := resultSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// sanitizeResult normalizes cosmetic deviations that models commonly produce
// so the document can still validate. Missing required fields are left
// missing.
func sanitizeResult(doc map[string]any) []string {
	var changed []string

	switch v := doc["ratingScore"].(type) {
	case float64:
		if r := math.Round(v); r != v {
			doc["ratingScore"] = r
			changed = append(changed, "ratingScore")
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			doc["ratingScore"] = math.Round(f)
			changed = append(changed, "ratingScore")
		}
	}

	if v, ok := doc["ratingText"].(string); ok {
		if n := strings.ToUpper(strings.TrimSpace(v)); n != v {
			doc["ratingText"] = n
			changed = append(changed, "ratingText")
		}
	}

	if flags, ok := doc["redFlags"].([]any); ok {
		for _, f := range flags {
			flag, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := flag["priority"].(string); ok {
				if n := strings.ToLower(strings.TrimSpace(p)); n != p {
					flag["priority"] = n
					changed = append(changed, "redFlags.priority")
				}
			}
		}
	}

	for _, k := range []string{"redFlags", "fairClauses", "recommendations"} {
		if v, ok := doc[k]; ok && v == nil {
			doc[k] = []any{}
			changed = append(changed, k)
		}
	}

	return changed
}

func decodeDocument(payload []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("response is null")
	}
	return doc, nil
}
