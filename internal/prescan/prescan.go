package prescan

import (
	"strings"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

// Entry is a single risk phrase and its severity on a 0-100 scale.
type Entry struct {
	Phrase   string
	Severity int
}

// Table is an ordered, read-only phrase table. Build it once and share it.
type Table struct {
	entries []Entry
}

// NewTable lowercases phrases and clamps severities into 0-100.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		sev := e.Severity
		if sev < 0 {
			sev = 0
		}
		if sev > 100 {
			sev = 100
		}
		t.entries = append(t.entries, Entry{Phrase: strings.ToLower(e.Phrase), Severity: sev})
	}
	return t
}

// DefaultTable returns the built-in residential-lease phrase table.
func DefaultTable() *Table {
	return NewTable([]Entry{
		{"waive your rights", 95},
		{"landlord is not responsible for any injury", 90},
		{"access the property without notice", 85},
		{"tenant is responsible for all repairs", 80},
		{"confess judgment", 98},
		{"security deposit is non-refundable", 88},
		{"automatic renewal", 70},
		{"rent increases may occur", 65},
		{"at the landlord's sole discretion", 60},
		{"as-is condition", 55},
		{"late fees of more than 5%", 68},
		{"no pets", 20},
		{"no alterations or improvements", 25},
		{"subletting requires prior consent", 15},
	})
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Scan matches every phrase in table order against the lowercased text.
// The score is the truncated mean of matched severities, or 0 with no matches.
func Scan(text string, table *Table) models.PreliminaryFindings {
	lower := strings.ToLower(text)
	findings := make([]models.PreliminaryFinding, 0)
	total := 0

	for _, e := range table.entries {
		if e.Phrase == "" {
			continue
		}
		if strings.Contains(lower, e.Phrase) {
			findings = append(findings, models.PreliminaryFinding{Phrase: e.Phrase, Severity: e.Severity})
			total += e.Severity
		}
	}

	score := 0
	if len(findings) > 0 {
		score = total / len(findings)
	}

	return models.PreliminaryFindings{Findings: findings, PreliminaryScore: score}
}
