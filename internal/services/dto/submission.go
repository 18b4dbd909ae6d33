package dto

import (
	"io"

	"conference_backend/internal/models"
)

// SubmissionRequest - поля формы подачи доклада
type SubmissionRequest struct {
	PaperTitle   string `form:"paperTitle" json:"paperTitle" validate:"required,max=500"`
	AuthorName   string `form:"authorName" json:"authorName" validate:"required,max=255"`
	Email        string `form:"email" json:"email" validate:"required,email"`
	ConfirmEmail string `form:"confirmEmail" json:"confirmEmail,omitempty"`
	Category     string `form:"category" json:"category" validate:"required"`
	Topic        string `form:"topic" json:"topic,omitempty"`

	// Остальные поля формы сохраняются как есть
	Details map[string]string `form:"-" json:"details,omitempty"`

	// Сессия подателя, если он вошел
	AccountID string `form:"-" json:"-"`
}

// AbstractFile - загруженный файл тезисов
type AbstractFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// SubmissionResponse - ответ /submit-paper
type SubmissionResponse struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	SubmissionID string             `json:"submissionId"`
	PaperDetails *models.Submission `json:"paperDetails"`
}

// UserSubmissionResponse - ответ /user-submission
type UserSubmissionResponse struct {
	Success       bool               `json:"success"`
	HasSubmission bool               `json:"hasSubmission"`
	Submission    *models.Submission `json:"submission"`
}

// UserSubmissionsResponse - ответ /user-submissions, новые заявки первыми
type UserSubmissionsResponse struct {
	Success     bool                `json:"success"`
	Count       int                 `json:"count"`
	Submissions []models.Submission `json:"submissions"`
}
