package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.HistoryEntry, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// historyRow mirrors analysis_history; result holds the FinalResult as JSON.
type historyRow struct {
	ID           string    `db:"id"`
	Owner        string    `db:"owner"`
	Filename     string    `db:"filename"`
	Jurisdiction string    `db:"jurisdiction"`
	RatingScore  int       `db:"rating_score"`
	RatingText   string    `db:"rating_text"`
	Result       string    `db:"result"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row historyRow) toEntry() (*models.HistoryEntry, error) {
	entry := &models.HistoryEntry{
		ID:           row.ID,
		Owner:        row.Owner,
		Filename:     row.Filename,
		Jurisdiction: row.Jurisdiction,
		RatingScore:  row.RatingScore,
		RatingText:   row.RatingText,
		CreatedAt:    row.CreatedAt,
	}
	if row.Result != "" {
		var result models.FinalResult
		if err := json.Unmarshal([]byte(row.Result), &result); err != nil {
			return nil, fmt.Errorf("decode stored result %s: %w", row.ID, err)
		}
		entry.Result = &result
	}
	return entry, nil
}

func (r *repository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.Result == nil {
		return errors.New("history entry has no result")
	}
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO analysis_history (id, owner, filename, jurisdiction, rating_score, rating_text, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Owner,
		entry.Filename,
		entry.Jurisdiction,
		entry.Result.RatingScore,
		entry.Result.RatingText,
		string(resultJSON),
		entry.CreatedAt.UTC(),
	)

	return err
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.HistoryEntry, error) {
	var row historyRow

	query := r.db.Rebind(`
		SELECT id, owner, filename, jurisdiction, rating_score, rating_text, result, created_at
		FROM analysis_history
		WHERE id = ?
	`)

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.toEntry()
}

// ListByOwner returns the newest entries first.
func (r *repository) ListByOwner(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Rebind(`
		SELECT id, owner, filename, jurisdiction, rating_score, rating_text, result, created_at
		FROM analysis_history
		WHERE owner = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, owner, limit); err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
