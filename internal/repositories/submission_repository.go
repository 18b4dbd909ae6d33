package repositories

import (
	"errors"

	"conference_backend/internal/ids"
	"conference_backend/internal/models"

	"gorm.io/gorm"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type SubmissionRepository interface {
	Create(db *gorm.DB, submission *models.Submission) error
	ListByEmail(db *gorm.DB, email string) ([]models.Submission, error)
	LatestByEmail(db *gorm.DB, email string) (*models.Submission, error)
	ListTables(db *gorm.DB) ([]string, error)
}

type SubmissionRepositoryImpl struct{}

func NewSubmissionRepository() SubmissionRepository {
	return &SubmissionRepositoryImpl{}
}

// NewSubmissionID выдает неизменяемый идентификатор заявки
func NewSubmissionID() string {
	return models.SubmissionIDPrefix + ids.New()
}

// Create присваивает SubmissionID и статус по умолчанию, затем сохраняет заявку
func (r *SubmissionRepositoryImpl) Create(db *gorm.DB, submission *models.Submission) error {
	if submission.SubmissionID == "" {
		submission.SubmissionID = NewSubmissionID()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusUnderReview
	}
	submission.Email = models.NormalizeEmail(submission.Email)
	return db.Create(submission).Error
}

func (r *SubmissionRepositoryImpl) ListByEmail(db *gorm.DB, email string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := db.Where("email = ?", models.NormalizeEmail(email)).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

func (r *SubmissionRepositoryImpl) LatestByEmail(db *gorm.DB, email string) (*models.Submission, error) {
	var submission models.Submission
	err := db.Where("email = ?", models.NormalizeEmail(email)).
		Order("created_at DESC").
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// ListTables - диагностика: список таблиц текущей базы
func (r *SubmissionRepositoryImpl) ListTables(db *gorm.DB) ([]string, error) {
	return db.Migrator().GetTables()
}
