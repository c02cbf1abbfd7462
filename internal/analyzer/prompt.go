package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

const DefaultLegalSystem = "India"

const documentMarker = "--- DOCUMENT TEXT ---"

// resultExample is sent verbatim so the model sees the exact shape expected.
const resultExample = `{
    "ratingScore": <an integer from 0 (Critical) to 100 (Perfect)>,
    "ratingText": "<a string: "CRITICAL", "DANGER", "CAUTION", "SAFE", or "PERFECT">",
    "shortSummary": "<a one-sentence summary of the overall risk>",
    "aiSummary": "<a detailed paragraph summarizing the key findings>",
    "redFlags": [
        {
            "priority": "<'high', 'medium', or 'low'>",
            "title": "Problematic Clause",
            "issue": "<A direct quote or summary of the problematic clause>",
            "recommendation": "<A suggestion on how to address this issue>"
        }
    ],
    "fairClauses": [
        {
            "title": "<A summary of a fair or standard clause>",
            "recommendation": "<A brief explanation of why this clause is fair>"
        }
    ],
    "recommendations": [
        "<A string with an actionable next step for the user>",
        "<Another actionable next step>"
    ]
}`

// FindingsJSON serializes pre-scan findings exactly as they appear in prompts.
func FindingsJSON(f models.PreliminaryFindings) (string, error) {
	if f.Findings == nil {
		f.Findings = []models.PreliminaryFinding{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return "", fmt.Errorf("encode findings: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// BuildPrompt composes the role, jurisdiction, findings, output shape and
// document text, in that order.
func BuildPrompt(req models.AnalysisRequest, legalSystem string) (string, error) {
	if legalSystem == "" {
		legalSystem = DefaultLegalSystem
	}

	findings, err := FindingsJSON(req.Findings)
	if err != nil {
		return "", err
	}

	var location string
	if hint := strings.TrimSpace(req.Jurisdiction); hint != "" {
		location = fmt.Sprintf("The user has specified that this agreement is for %s, %s. Please consider this location in your legal analysis.", hint, legalSystem)
	} else {
		location = "The user has not specified a location. Provide a general analysis."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert AI legal assistant specializing in %s contract law for tenant and consumer rights.\n", legalSystem)
	b.WriteString("Your task is to analyze the provided document text and identify potentially unfair, risky, or problematic clauses.\n")
	b.WriteString(location)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "I have already performed a basic keyword scan and found these potential issues: %s. ", findings)
	b.WriteString("Treat this only as a hint, not as ground truth, and perform your own comprehensive, independent analysis.\n\n")
	b.WriteString("Your response MUST be a single, valid JSON object with the following structure:\n")
	b.WriteString(resultExample)
	b.WriteString("\n\nAnalyze the following document:\n\n")
	b.WriteString(documentMarker)
	b.WriteString("\n")
	b.WriteString(req.Text)

	return b.String(), nil
}
