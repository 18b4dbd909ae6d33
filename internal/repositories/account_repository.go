package repositories

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"conference_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountAlreadyExists     = errors.New("account already exists")
	ErrVerificationTokenUnknown = errors.New("verification token not found")
	ErrVerificationTokenExpired = errors.New("verification token expired")
	ErrResetOTPRejected         = errors.New("reset otp invalid or expired")
)

type AccountRepository interface {
	Create(db *gorm.DB, account *models.Account) error
	FindByEmail(db *gorm.DB, email string) (*models.Account, error)
	FindByVerificationToken(db *gorm.DB, token string) (*models.Account, error)
	NextAvailableUsername(db *gorm.DB, base string) (string, error)
	Delete(db *gorm.DB, id string) error

	// Verification
	SetVerificationToken(db *gorm.DB, accountID, token string, expiresAt time.Time) error
	ConsumeVerificationToken(db *gorm.DB, token, email string, now time.Time) (*models.Account, error)
	ListPendingVerifications(db *gorm.DB) ([]models.Account, error)

	// Password reset
	SetResetOTP(db *gorm.DB, accountID, otp string, expiresAt time.Time) error
	ResetPasswordWithOTP(db *gorm.DB, email, otp, passwordHash string, now time.Time) error
	PurgeExpiredResetOTPs(db *gorm.DB, now time.Time) (int64, error)
}

type AccountRepositoryImpl struct{}

func NewAccountRepository() AccountRepository {
	return &AccountRepositoryImpl{}
}

func (r *AccountRepositoryImpl) Create(db *gorm.DB, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)

	var count int64
	if err := db.Model(&models.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAccountAlreadyExists
	}

	if err := db.Create(account).Error; err != nil {
		// Параллельная регистрация: уникальный индекс сработал после проверки
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

func (r *AccountRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryImpl) FindByVerificationToken(db *gorm.DB, token string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("verification_token = ?", token).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationTokenUnknown
		}
		return nil, err
	}
	return &account, nil
}

// NextAvailableUsername возвращает base, либо base с наименьшим свободным числовым суффиксом
func (r *AccountRepositoryImpl) NextAvailableUsername(db *gorm.DB, base string) (string, error) {
	var taken []string
	err := db.Model(&models.Account{}).
		Where("username = ? OR username LIKE ?", base, escapeLike(base)+"%").
		Pluck("username", &taken).Error
	if err != nil {
		return "", err
	}

	used := make(map[string]struct{}, len(taken))
	for _, name := range taken {
		used[name] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
}

// Delete используется только для отката регистрации
func (r *AccountRepositoryImpl) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Verification

// SetVerificationToken заменяет ожидающий токен (старый перестает действовать)
func (r *AccountRepositoryImpl) SetVerificationToken(db *gorm.DB, accountID, token string, expiresAt time.Time) error {
	result := db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"verification_token":   token,
			"verification_expires": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ConsumeVerificationToken подтверждает email по токену ровно один раз.
// Если email не пустой, он тоже должен совпасть.
// Успех определяет условный UPDATE: из двух одновременных запросов
// строку обновит только один, второй получит ErrVerificationTokenUnknown.
func (r *AccountRepositoryImpl) ConsumeVerificationToken(db *gorm.DB, token, email string, now time.Time) (*models.Account, error) {
	account, err := r.FindByVerificationToken(db, token)
	if err != nil {
		return nil, err
	}
	if email != "" && account.Email != models.NormalizeEmail(email) {
		return nil, ErrVerificationTokenUnknown
	}
	if account.VerificationExpired(now) {
		return nil, ErrVerificationTokenExpired
	}

	result := db.Model(&models.Account{}).
		Where("id = ? AND verification_token = ? AND verification_expires > ?", account.ID, token, now).
		Updates(map[string]interface{}{
			"verified":             true,
			"verification_token":   nil,
			"verification_expires": nil,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrVerificationTokenUnknown
	}

	account.Verified = true
	account.VerificationToken = nil
	account.VerificationExpires = nil
	return account, nil
}

func (r *AccountRepositoryImpl) ListPendingVerifications(db *gorm.DB) ([]models.Account, error) {
	var accounts []models.Account
	err := db.Where("verification_token IS NOT NULL").
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}

// Password reset

func (r *AccountRepositoryImpl) SetResetOTP(db *gorm.DB, accountID, otp string, expiresAt time.Time) error {
	result := db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"reset_otp":         otp,
			"reset_otp_expires": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ResetPasswordWithOTP меняет хеш пароля и гасит OTP одним условным UPDATE
func (r *AccountRepositoryImpl) ResetPasswordWithOTP(db *gorm.DB, email, otp, passwordHash string, now time.Time) error {
	result := db.Model(&models.Account{}).
		Where("email = ? AND reset_otp = ? AND reset_otp_expires > ?", models.NormalizeEmail(email), otp, now).
		Updates(map[string]interface{}{
			"password_hash":     passwordHash,
			"reset_otp":         nil,
			"reset_otp_expires": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("reset password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetOTPRejected
	}
	return nil
}

// PurgeExpiredResetOTPs стирает просроченные коды сброса
func (r *AccountRepositoryImpl) PurgeExpiredResetOTPs(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Account{}).
		Where("reset_otp IS NOT NULL AND reset_otp_expires <= ?", now).
		Updates(map[string]interface{}{
			"reset_otp":         nil,
			"reset_otp_expires": nil,
		})
	return result.RowsAffected, result.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
