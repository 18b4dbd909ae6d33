package repositories

import (
	"strings"
	"testing"
	"time"

	"conference_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionCreate_AssignsIDAndStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository()

	mock.ExpectQuery(`INSERT INTO "submissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	sub := &models.Submission{
		PaperTitle: "On Graphs",
		AuthorName: "Alice",
		Email:      "Alice@Example.org",
		Category:   "Research",
	}
	require.NoError(t, repo.Create(db, sub))

	assert.True(t, strings.HasPrefix(sub.SubmissionID, "SUB-"))
	assert.Len(t, sub.SubmissionID, len("SUB-")+26)
	assert.Equal(t, models.SubmissionStatusUnderReview, sub.Status)
	assert.Equal(t, "alice@example.org", sub.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionIDs_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := NewSubmissionID()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestLatestByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository()
	now := time.Now()

	cols := []string{"id", "submission_id", "paper_title", "author_name", "email", "category", "topic", "abstract_file_url", "status", "account_id", "details", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT \* FROM "submissions" WHERE email = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			7, "SUB-01HX", "On Graphs", "Alice", "alice@example.org", "Research", "", "", "Under Review", nil, []byte(`{"country":"KZ"}`), now, now,
		))

	sub, err := repo.LatestByEmail(db, "alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, "SUB-01HX", sub.SubmissionID)
	assert.Equal(t, "KZ", sub.Details["country"])

	mock.ExpectQuery(`SELECT \* FROM "submissions"`).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.LatestByEmail(db, "nobody@example.org")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
