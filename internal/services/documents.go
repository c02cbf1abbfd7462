package services

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/extractor"
	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/repository"
	"github.com/BerylCAtieno/agreement-analyzer/internal/storage"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"

	"github.com/google/uuid"
)

const historyLimit = 50

type DocumentService interface {
	AnalyzeDocument(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	History(ctx context.Context, owner string) ([]models.HistoryEntry, error)
	Analysis(ctx context.Context, id string) (*models.HistoryEntry, error)
	Health(ctx context.Context) error
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type documentService struct {
	pipeline *Pipeline
	repo     repository.Repository
	storage  storage.Storage
	db       Pinger
	logger   *utils.Logger
	now      func() time.Time
}

// NewService wires the pipeline to the history sink and the upload archive.
// repo, store and db may be nil; the matching feature is then skipped.
func NewService(pipeline *Pipeline, repo repository.Repository, store storage.Storage, db Pinger, logger *utils.Logger) DocumentService {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &documentService{
		pipeline: pipeline,
		repo:     repo,
		storage:  store,
		db:       db,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *documentService) AnalyzeDocument(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	owner := strings.TrimSpace(req.Owner)
	if owner != "" && !validEmail(owner) {
		return nil, utils.NewBadRequestError("Invalid email address")
	}

	// Pasted text wins when both are sent.
	var (
		doc    models.RawDocument
		upload bool
	)
	switch {
	case req.Text != "":
		doc = models.RawDocument{
			Data:         []byte(req.Text),
			Format:       models.FormatPlain,
			Jurisdiction: strings.TrimSpace(req.Jurisdiction),
		}
	case len(req.File) > 0:
		upload = true
		doc = models.RawDocument{
			Data:         req.File,
			Format:       extractor.FormatFromName(req.Filename, req.ContentType),
			Filename:     req.Filename,
			Jurisdiction: strings.TrimSpace(req.Jurisdiction),
		}
	default:
		return nil, utils.NewBadRequestError("No file or text provided")
	}

	id := utils.GenerateID()
	logger := s.logger.With("id", id)
	logger.Info("Starting document analysis",
		"filename", doc.Filename,
		"format", doc.Format,
		"size", len(doc.Data),
		"jurisdiction", doc.Jurisdiction)

	archived := ""
	if upload {
		archived = s.archive(ctx, id, req)
	}

	result, err := s.pipeline.Analyze(ctx, doc)
	if err != nil {
		logger.Error("Failed to analyze document", "error", err)
		if archived != "" {
			s.discard(ctx, id, archived)
		}
		return nil, err
	}

	now := s.now().UTC()
	if owner != "" {
		s.saveHistory(ctx, &models.HistoryEntry{
			ID:           id,
			Owner:        owner,
			Filename:     doc.Filename,
			Jurisdiction: doc.Jurisdiction,
			RatingScore:  result.RatingScore,
			RatingText:   result.RatingText,
			Result:       result,
			CreatedAt:    now,
		})
	}

	return &models.AnalyzeResponse{
		ID:          id,
		Filename:    doc.Filename,
		AnalyzedAt:  now,
		FinalResult: result,
	}, nil
}

func (s *documentService) History(ctx context.Context, owner string) ([]models.HistoryEntry, error) {
	owner = strings.TrimSpace(owner)
	if !validEmail(owner) {
		return nil, utils.NewBadRequestError("Invalid email address")
	}
	if s.repo == nil {
		return nil, utils.NewAppError(http.StatusServiceUnavailable, "history_unavailable", "History is not available", nil)
	}

	entries, err := s.repo.ListByOwner(ctx, owner, historyLimit)
	if err != nil {
		s.logger.Error("Failed to list history", "error", err, "owner", owner)
		return nil, utils.NewInternalError("Failed to retrieve history")
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}

func (s *documentService) Analysis(ctx context.Context, id string) (*models.HistoryEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.NewNotFoundError("Analysis not found")
	}
	if s.repo == nil {
		return nil, utils.NewAppError(http.StatusServiceUnavailable, "history_unavailable", "History is not available", nil)
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get analysis", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve analysis")
	}
	if entry == nil {
		return nil, utils.NewNotFoundError("Analysis not found")
	}
	return entry, nil
}

func (s *documentService) Health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("Database ping failed", "error", err)
		return utils.NewAppError(http.StatusServiceUnavailable, "database_unavailable", "Database is not reachable", err)
	}
	return nil
}

// archive stores the raw upload and returns its key, or "" when nothing
// was stored. Failures never fail the analysis.
func (s *documentService) archive(ctx context.Context, id string, req *models.AnalyzeRequest) string {
	if s.storage == nil {
		return ""
	}
	key := storage.DocumentKey(id, req.Filename)
	if err := s.storage.Upload(ctx, key, req.File, req.ContentType); err != nil {
		s.logger.Warn("Failed to archive document", "error", err, "id", id, "s3_key", key)
		return ""
	}
	s.logger.Debug("Document archived", "id", id, "s3_key", key)
	return key
}

// discard removes the archived upload of a failed analysis. The request
// context may already be done, so the delete gets its own deadline.
func (s *documentService) discard(ctx context.Context, id, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete archived document", "error", err, "id", id, "s3_key", key)
		return
	}
	s.logger.Debug("Archived document deleted", "id", id, "s3_key", key)
}

// saveHistory records a finished analysis. Failures are logged only.
func (s *documentService) saveHistory(ctx context.Context, entry *models.HistoryEntry) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to save analysis history", "error", err, "id", entry.ID)
		return
	}
	s.logger.Info("Analysis saved to history", "id", entry.ID)
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
