package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubmissionStatusUnderReview = "Under Review"
	SubmissionIDPrefix          = "SUB-"
)

// Submission - заявка с докладом на конференцию
type Submission struct {
	ID              uint              `gorm:"primaryKey" json:"-"`
	SubmissionID    string            `gorm:"type:varchar(64);uniqueIndex;not null;<-:create" json:"submissionId"`
	PaperTitle      string            `gorm:"type:varchar(500);not null" json:"paperTitle"`
	AuthorName      string            `gorm:"type:varchar(255);not null" json:"authorName"`
	Email           string            `gorm:"type:varchar(255);index;not null" json:"email"`
	Category        string            `gorm:"type:varchar(255);not null" json:"category"`
	Topic           string            `gorm:"type:varchar(255)" json:"topic,omitempty"`
	AbstractFileURL string            `gorm:"type:text" json:"abstractFileUrl,omitempty"`
	Status          string            `gorm:"type:varchar(50);default:'Under Review';not null" json:"status"`
	AccountID       *string           `gorm:"type:varchar(36);index" json:"-"`
	Details         datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionDetailFields - дополнительные поля формы, которые хранятся в Details
var SubmissionDetailFields = []string{
	"salutation",
	"authorCategory",
	"coauthors",
	"university",
	"country",
	"phone",
	"participationType",
	"presentationType",
	"publishPaper",
	"publishAvenue",
	"collaborativeResearch",
	"communicationMode",
	"promoCode",
	"referralSource",
}
