package repositories

import (
	"testing"
	"time"

	"conference_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRow(expires time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountColumns).AddRow(
		"acc-1", "alice", "alice@example.org", "hash", false, false,
		"tok-123", expires, nil, nil, now, now,
	)
}

func TestConsumeVerificationToken_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE verification_token = \$1`).
		WillReturnRows(pendingRow(now.Add(time.Hour)))
	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE id = \$\d+ AND verification_token = \$\d+ AND verification_expires > \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	account, err := repo.ConsumeVerificationToken(db, "tok-123", "", now)
	require.NoError(t, err)
	assert.True(t, account.Verified)
	assert.Nil(t, account.VerificationToken)
	assert.Nil(t, account.VerificationExpires)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVerificationToken_LostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE verification_token = \$1`).
		WillReturnRows(pendingRow(now.Add(time.Hour)))
	// Второй запрос уже погасил токен
	mock.ExpectExec(`UPDATE "accounts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ConsumeVerificationToken(db, "tok-123", "", now)
	assert.ErrorIs(t, err, ErrVerificationTokenUnknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVerificationToken_Expired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE verification_token = \$1`).
		WillReturnRows(pendingRow(now.Add(-time.Minute)))

	_, err := repo.ConsumeVerificationToken(db, "tok-123", "", now)
	assert.ErrorIs(t, err, ErrVerificationTokenExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVerificationToken_Unknown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE verification_token = \$1`).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.ConsumeVerificationToken(db, "nope", "", time.Now())
	assert.ErrorIs(t, err, ErrVerificationTokenUnknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVerificationToken_EmailMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE verification_token = \$1`).
		WillReturnRows(pendingRow(now.Add(time.Hour)))

	_, err := repo.ConsumeVerificationToken(db, "tok-123", "mallory@example.org", now)
	assert.ErrorIs(t, err, ErrVerificationTokenUnknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordWithOTP(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()
	now := time.Now()

	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE email = \$\d+ AND reset_otp = \$\d+ AND reset_otp_expires > \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ResetPasswordWithOTP(db, "Alice@Example.org", "123456", "new-hash", now))

	// Повторное использование того же OTP
	mock.ExpectExec(`UPDATE "accounts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.ResetPasswordWithOTP(db, "alice@example.org", "123456", "new-hash", now)
	assert.ErrorIs(t, err, ErrResetOTPRejected)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "accounts" WHERE email = \$1`).
		WithArgs("alice@example.org").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.Create(db, &models.Account{Email: " ALICE@example.org", Username: "alice"})
	assert.ErrorIs(t, err, ErrAccountAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Inserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO "accounts"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.Account{Email: "Bob@Example.org", Username: "bob", PasswordHash: "h"}
	require.NoError(t, repo.Create(db, account))
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "bob@example.org", account.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextAvailableUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectQuery(`SELECT "username" FROM "accounts" WHERE username = \$1 OR username LIKE \$2`).
		WithArgs("alice", "alice%").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("alice").AddRow("alice1"))

	name, err := repo.NextAvailableUsername(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice2", name)

	mock.ExpectQuery(`SELECT "username" FROM "accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("bobby"))

	name, err = repo.NextAvailableUsername(db, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetVerificationToken_UnknownAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetVerificationToken(db, "missing", "tok", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredResetOTPs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository()

	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE reset_otp IS NOT NULL AND reset_otp_expires <= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeExpiredResetOTPs(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
