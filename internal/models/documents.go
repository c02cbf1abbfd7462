package models

import (
	"time"
)

// Format is the declared source format of an uploaded or pasted document.
type Format string

const (
	FormatPlain Format = "plain"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
)

// RawDocument is consumed once by the extractor.
type RawDocument struct {
	Data         []byte
	Format       Format
	Filename     string
	Jurisdiction string
}

type PreliminaryFinding struct {
	Phrase   string `json:"phrase"`
	Severity int    `json:"score"`
}

type PreliminaryFindings struct {
	Findings         []PreliminaryFinding `json:"found_issues"`
	PreliminaryScore int                  `json:"preliminary_score"`
}

type AnalysisRequest struct {
	Text         string
	Findings     PreliminaryFindings
	Jurisdiction string
}

type RedFlag struct {
	Priority       string `json:"priority"`
	Title          string `json:"title"`
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

type FairClause struct {
	Title          string `json:"title"`
	Recommendation string `json:"recommendation"`
}

type AnalysisResult struct {
	RatingScore     int          `json:"ratingScore"`
	RatingText      string       `json:"ratingText"`
	ShortSummary    string       `json:"shortSummary"`
	AISummary       string       `json:"aiSummary"`
	RedFlags        []RedFlag    `json:"redFlags"`
	FairClauses     []FairClause `json:"fairClauses"`
	Recommendations []string     `json:"recommendations"`
}

// FinalResult is the aggregated payload returned to callers and persisted to history.
type FinalResult struct {
	AnalysisResult
	RedFlagsCount    int `json:"redFlagsCount"`
	FairClausesCount int `json:"fairClausesCount"`
}

type AnalyzeRequest struct {
	File         []byte
	Text         string
	Filename     string
	ContentType  string
	Jurisdiction string
	Owner        string
}

type AnalyzeResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	*FinalResult
}

type HistoryEntry struct {
	ID           string       `json:"id" db:"id"`
	Owner        string       `json:"owner" db:"owner"`
	Filename     string       `json:"filename" db:"filename"`
	Jurisdiction string       `json:"jurisdiction" db:"jurisdiction"`
	RatingScore  int          `json:"rating_score" db:"rating_score"`
	RatingText   string       `json:"rating_text" db:"rating_text"`
	Result       *FinalResult `json:"result" db:"-"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
