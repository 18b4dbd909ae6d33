package services

import (
	"context"
	"errors"
	"time"

	"conference_backend/internal/auth"
	"conference_backend/internal/email"
	"conference_backend/internal/logger"
	"conference_backend/internal/metrics"
	"conference_backend/internal/models"
	"conference_backend/internal/repositories"
	"conference_backend/internal/services/dto"
	"conference_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Сколько раз подбирать username при гонке параллельных регистраций
const maxUsernameAttempts = 3

type AuthService interface {
	Signup(ctx context.Context, db *gorm.DB, req *dto.SignupRequest) (*dto.SignupResult, error)
	VerifyEmail(ctx context.Context, db *gorm.DB, token string) (*models.Account, error)
	VerifyEmailWithEmail(ctx context.Context, db *gorm.DB, token, email string) (*models.Account, error)
	VerifyEmailPayload(ctx context.Context, db *gorm.DB, data string) (*models.Account, error)
	ResendVerification(ctx context.Context, db *gorm.DB, email string) (*dto.ResendResult, error)
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResult, error)
	ForgotPassword(ctx context.Context, db *gorm.DB, email string) error
	ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error
	DebugTokens(ctx context.Context, db *gorm.DB) ([]dto.PendingToken, error)
}

// AuthPolicy - настраиваемое поведение сервиса
type AuthPolicy struct {
	FrontendURL            string
	MinPasswordLength      int
	DistinguishLoginErrors bool
	RollbackOnEmailFailure bool
}

type AuthServiceImpl struct {
	accountRepo repositories.AccountRepository
	issuer      TokenIssuer
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
	notifier    email.Notifier
	metrics     *metrics.Metrics
	policy      AuthPolicy
	now         func() time.Time
}

func NewAuthService(
	accountRepo repositories.AccountRepository,
	issuer TokenIssuer,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	notifier email.Notifier,
	m *metrics.Metrics,
	policy AuthPolicy,
) *AuthServiceImpl {
	if policy.MinPasswordLength <= 0 {
		policy.MinPasswordLength = 6
	}
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		issuer:      issuer,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		metrics:     m,
		policy:      policy,
		now:         time.Now,
	}
}

// WithClock подменяет часы (для тестов)
func (s *AuthServiceImpl) WithClock(now func() time.Time) *AuthServiceImpl {
	s.now = now
	return s
}

// Signup - регистрация. Аккаунт создается неподтвержденным.
// Сбой отправки письма не откатывает регистрацию, если не включен RollbackOnEmailFailure.
func (s *AuthServiceImpl) Signup(ctx context.Context, db *gorm.DB, req *dto.SignupRequest) (*dto.SignupResult, error) {
	emailAddr := models.NormalizeEmail(req.Email)

	if err := auth.ValidatePassword(req.Password, s.policy.MinPasswordLength); err != nil {
		return nil, apperrors.ErrWeakPassword.WithMessage(capitalize(err.Error()))
	}

	if _, err := s.accountRepo.FindByEmail(db, emailAddr); err == nil {
		s.metrics.AuthEvent("signup", "conflict")
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, repositories.ErrAccountNotFound) {
		return nil, apperrors.DatabaseError(err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	token, expiresAt, err := s.issuer.Issue(TokenKindVerification)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	account := &models.Account{
		Email:               emailAddr,
		PasswordHash:        passwordHash,
		Verified:            false,
		VerificationToken:   &token,
		VerificationExpires: &expiresAt,
	}

	if err := s.createWithUsername(db, account); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "account created", "account_id", account.ID, "username", account.Username)

	sendErr := s.sendVerification(ctx, account.Email, token)
	if sendErr != nil && s.policy.RollbackOnEmailFailure {
		if err := s.accountRepo.Delete(db, account.ID); err != nil {
			logger.CtxWithError(ctx, "failed to roll back account after email failure", err, "account_id", account.ID)
		}
		s.metrics.AuthEvent("signup", "rolled_back")
		return nil, apperrors.ErrEmailDeliveryFailed.WithError(sendErr)
	}

	s.metrics.AuthEvent("signup", "created")
	return &dto.SignupResult{Account: account, EmailSent: sendErr == nil}, nil
}

// createWithUsername подбирает свободный username и сохраняет аккаунт.
// Если username успела занять параллельная регистрация, подбор повторяется.
func (s *AuthServiceImpl) createWithUsername(db *gorm.DB, account *models.Account) error {
	base := models.UsernameFromEmail(account.Email)
	for attempt := 1; ; attempt++ {
		username, err := s.accountRepo.NextAvailableUsername(db, base)
		if err != nil {
			return apperrors.DatabaseError(err)
		}
		account.Username = username

		err = s.accountRepo.Create(db, account)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrAccountAlreadyExists) {
			return apperrors.DatabaseError(err)
		}

		// Уникальный индекс не говорит, какое поле занято: смотрим email
		if _, findErr := s.accountRepo.FindByEmail(db, account.Email); findErr == nil {
			s.metrics.AuthEvent("signup", "conflict")
			return apperrors.ErrEmailAlreadyExists
		} else if !errors.Is(findErr, repositories.ErrAccountNotFound) {
			return apperrors.DatabaseError(findErr)
		}
		if attempt >= maxUsernameAttempts {
			return apperrors.DatabaseError(err)
		}
	}
}

// VerifyEmail - подтверждение по токену из ссылки
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, db *gorm.DB, token string) (*models.Account, error) {
	if token == "" {
		return nil, apperrors.ErrVerificationTokenMissing
	}
	return s.consumeVerification(ctx, db, token, "")
}

// VerifyEmailWithEmail - подтверждение по паре token+email
func (s *AuthServiceImpl) VerifyEmailWithEmail(ctx context.Context, db *gorm.DB, token, emailAddr string) (*models.Account, error) {
	if token == "" || emailAddr == "" {
		return nil, apperrors.ErrVerificationDataIncomplete
	}
	return s.consumeVerification(ctx, db, token, emailAddr)
}

// VerifyEmailPayload - устаревшая ссылка с base64(JSON{token,email,timestamp})
func (s *AuthServiceImpl) VerifyEmailPayload(ctx context.Context, db *gorm.DB, data string) (*models.Account, error) {
	if data == "" {
		return nil, apperrors.ErrVerificationTokenMissing
	}
	payload, err := DecodeVerificationPayload(data)
	if err != nil {
		return nil, apperrors.ErrVerificationLinkMalformed
	}
	return s.VerifyEmailWithEmail(ctx, db, payload.Token, payload.Email)
}

func (s *AuthServiceImpl) consumeVerification(ctx context.Context, db *gorm.DB, token, emailAddr string) (*models.Account, error) {
	account, err := s.accountRepo.ConsumeVerificationToken(db, token, emailAddr, s.now())
	switch {
	case err == nil:
		logger.CtxInfo(ctx, "email verified", "account_id", account.ID)
		s.metrics.AuthEvent("verify", "verified")
		return account, nil
	case errors.Is(err, repositories.ErrVerificationTokenUnknown):
		s.metrics.AuthEvent("verify", "not_found")
		return nil, apperrors.ErrVerificationTokenNotFound
	case errors.Is(err, repositories.ErrVerificationTokenExpired):
		s.metrics.AuthEvent("verify", "expired")
		return nil, apperrors.ErrVerificationTokenExpired
	default:
		return nil, apperrors.DatabaseError(err)
	}
}

// ResendVerification - новый токен вместо старого и повторное письмо
func (s *AuthServiceImpl) ResendVerification(ctx context.Context, db *gorm.DB, emailAddr string) (*dto.ResendResult, error) {
	account, err := s.findAccount(db, emailAddr)
	if err != nil {
		return nil, err
	}
	if account.Verified {
		return nil, apperrors.ErrAlreadyVerified
	}

	token, expiresAt, err := s.issuer.Issue(TokenKindVerification)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.accountRepo.SetVerificationToken(db, account.ID, token, expiresAt); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	sendErr := s.sendVerification(ctx, account.Email, token)
	s.metrics.AuthEvent("resend_verification", outcome(sendErr, "sent", "email_failed"))
	return &dto.ResendResult{EmailSent: sendErr == nil}, nil
}

// Login - вход. Неподтвержденный аккаунт получает NeedsVerification без токена.
func (s *AuthServiceImpl) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResult, error) {
	account, err := s.accountRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			s.metrics.AuthEvent("login", "unknown_account")
			if s.policy.DistinguishLoginErrors {
				return nil, apperrors.ErrUnknownAccount
			}
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.DatabaseError(err)
	}

	match, err := s.hasher.Compare(req.Password, account.PasswordHash)
	if err != nil {
		logger.CtxWithError(ctx, "password hash check failed", err, "account_id", account.ID)
	}
	if !match {
		s.metrics.AuthEvent("login", "bad_password")
		if s.policy.DistinguishLoginErrors {
			return nil, apperrors.ErrIncorrectPassword
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if !account.Verified {
		s.metrics.AuthEvent("login", "unverified")
		return &dto.LoginResult{
			Email:             account.Email,
			Username:          account.Username,
			UserID:            account.ID,
			NeedsVerification: true,
		}, nil
	}

	token, expiresAt, err := s.tokens.Generate(account.ID, account.Email, account.Username)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "login succeeded", "account_id", account.ID)
	s.metrics.AuthEvent("login", "success")
	return &dto.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     account.Email,
		Username:  account.Username,
		UserID:    account.ID,
	}, nil
}

// ForgotPassword - выдает OTP. OTP сохраняется даже если письмо не ушло.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, db *gorm.DB, emailAddr string) error {
	account, err := s.findAccount(db, emailAddr)
	if err != nil {
		return err
	}

	otp, expiresAt, err := s.issuer.Issue(TokenKindResetOTP)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.accountRepo.SetResetOTP(db, account.ID, otp, expiresAt); err != nil {
		return apperrors.DatabaseError(err)
	}

	sendErr := s.notifier.SendResetOTP(ctx, account.Email, otp)
	s.metrics.EmailDelivery(email.TemplateResetOTP, sendErr)
	s.metrics.AuthEvent("forgot_password", outcome(sendErr, "sent", "email_failed"))
	if sendErr != nil {
		return apperrors.ErrEmailDeliveryFailed.WithError(sendErr)
	}
	return nil
}

// ResetPassword - одноразовое использование OTP и смена пароля
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error {
	if err := auth.ValidatePassword(req.NewPassword, s.policy.MinPasswordLength); err != nil {
		return apperrors.ErrWeakPassword.WithMessage(capitalize(err.Error()))
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	err = s.accountRepo.ResetPasswordWithOTP(db, req.Email, req.OTP, passwordHash, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrResetOTPRejected) {
			s.metrics.AuthEvent("reset_password", "rejected")
			return apperrors.ErrInvalidOrExpiredOTP
		}
		return apperrors.DatabaseError(err)
	}

	logger.CtxInfo(ctx, "password reset", "email", models.NormalizeEmail(req.Email))
	s.metrics.AuthEvent("reset_password", "success")
	return nil
}

// DebugTokens - ожидающие токены подтверждения (без самих значений)
func (s *AuthServiceImpl) DebugTokens(ctx context.Context, db *gorm.DB) ([]dto.PendingToken, error) {
	accounts, err := s.accountRepo.ListPendingVerifications(db)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	now := s.now()
	out := make([]dto.PendingToken, 0, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		item := dto.PendingToken{
			Email:     acc.Email,
			IsExpired: acc.VerificationExpired(now),
		}
		if acc.VerificationToken != nil {
			item.TokenLength = len(*acc.VerificationToken)
		}
		if acc.VerificationExpires != nil {
			item.Expires = *acc.VerificationExpires
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *AuthServiceImpl) findAccount(db *gorm.DB, emailAddr string) (*models.Account, error) {
	account, err := s.accountRepo.FindByEmail(db, emailAddr)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.DatabaseError(err)
	}
	return account, nil
}

func (s *AuthServiceImpl) sendVerification(ctx context.Context, to, token string) error {
	err := s.notifier.SendVerification(ctx, to, VerificationLink(s.policy.FrontendURL, token))
	s.metrics.EmailDelivery(email.TemplateVerification, err)
	if err != nil {
		logger.CtxWithError(ctx, "verification email not sent", err, "to", to)
	}
	return err
}

func outcome(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
