package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"conference_backend/internal/logger"
	"conference_backend/internal/metrics"
	"conference_backend/internal/models"
	"conference_backend/internal/repositories"
	"conference_backend/internal/services/dto"
	"conference_backend/internal/storage"
	"conference_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionService interface {
	Create(ctx context.Context, db *gorm.DB, req *dto.SubmissionRequest, file *dto.AbstractFile) (*models.Submission, error)
	ListForEmail(ctx context.Context, db *gorm.DB, email string) ([]models.Submission, error)
	LatestForEmail(ctx context.Context, db *gorm.DB, email string) (*models.Submission, error)
	ListCollections(ctx context.Context, db *gorm.DB) ([]string, error)
}

// UploadPolicy - ограничения на файл тезисов
type UploadPolicy struct {
	MaxSize      int64
	AllowedTypes []string
}

type SubmissionServiceImpl struct {
	submissionRepo repositories.SubmissionRepository
	storage        storage.Storage
	metrics        *metrics.Metrics
	policy         UploadPolicy
}

func NewSubmissionService(
	submissionRepo repositories.SubmissionRepository,
	store storage.Storage,
	m *metrics.Metrics,
	policy UploadPolicy,
) *SubmissionServiceImpl {
	return &SubmissionServiceImpl{
		submissionRepo: submissionRepo,
		storage:        store,
		metrics:        m,
		policy:         policy,
	}
}

// Create сохраняет заявку. Файл (если есть) кладется в хранилище
// под abstracts/<submissionId>/<имя файла>, затем заявка пишется в базу.
func (s *SubmissionServiceImpl) Create(ctx context.Context, db *gorm.DB, req *dto.SubmissionRequest, file *dto.AbstractFile) (*models.Submission, error) {
	if req.ConfirmEmail != "" && models.NormalizeEmail(req.ConfirmEmail) != models.NormalizeEmail(req.Email) {
		return nil, apperrors.ErrEmailMismatch
	}
	if file != nil {
		if err := s.checkFile(file); err != nil {
			return nil, err
		}
	}

	submission := &models.Submission{
		SubmissionID: repositories.NewSubmissionID(),
		PaperTitle:   strings.TrimSpace(req.PaperTitle),
		AuthorName:   strings.TrimSpace(req.AuthorName),
		Email:        req.Email,
		Category:     req.Category,
		Topic:        req.Topic,
		Status:       models.SubmissionStatusUnderReview,
		Details:      detailsMap(req.Details),
	}
	if req.AccountID != "" {
		accountID := req.AccountID
		submission.AccountID = &accountID
	}

	var storedKey string
	if file != nil {
		key := fmt.Sprintf("abstracts/%s/%s", submission.SubmissionID, sanitizeFileName(file.Name))
		if err := s.storage.Save(ctx, key, file.Reader, file.Size, file.ContentType); err != nil {
			logger.CtxWithError(ctx, "failed to store abstract", err, "submission_id", submission.SubmissionID)
			return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "storage", "Failed to upload abstract file", http.StatusInternalServerError)
		}
		storedKey = key

		url, err := s.storage.GetURL(ctx, key)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		submission.AbstractFileURL = url
	}

	if err := s.submissionRepo.Create(db, submission); err != nil {
		if storedKey != "" {
			if delErr := s.storage.Delete(ctx, storedKey); delErr != nil {
				logger.CtxWithError(ctx, "failed to remove orphaned abstract", delErr, "key", storedKey)
			}
		}
		return nil, apperrors.DatabaseError(err)
	}

	logger.CtxInfo(ctx, "paper submitted", "submission_id", submission.SubmissionID, "has_file", storedKey != "")
	s.metrics.SubmissionAccepted()
	return submission, nil
}

func (s *SubmissionServiceImpl) ListForEmail(ctx context.Context, db *gorm.DB, email string) ([]models.Submission, error) {
	submissions, err := s.submissionRepo.ListByEmail(db, email)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return submissions, nil
}

// LatestForEmail возвращает nil без ошибки, если заявок нет
func (s *SubmissionServiceImpl) LatestForEmail(ctx context.Context, db *gorm.DB, email string) (*models.Submission, error) {
	submission, err := s.submissionRepo.LatestByEmail(db, email)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError(err)
	}
	return submission, nil
}

func (s *SubmissionServiceImpl) ListCollections(ctx context.Context, db *gorm.DB) ([]string, error) {
	tables, err := s.submissionRepo.ListTables(db)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return tables, nil
}

func (s *SubmissionServiceImpl) checkFile(file *dto.AbstractFile) error {
	if s.policy.MaxSize > 0 && file.Size > s.policy.MaxSize {
		return apperrors.ErrFileTooLarge
	}
	if len(s.policy.AllowedTypes) == 0 {
		return nil
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.ContentType, ";")[0]))
	for _, allowed := range s.policy.AllowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return apperrors.ErrInvalidFileType
}

func detailsMap(in map[string]string) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "abstract"
	}
	return name
}
