package apperrors

import (
	"net/http"
)

/*
Предопределенные ошибки домена. Статусы повторяют контракт фронтенда:
ошибки поиска и проверки на маршрутах авторизации отдаются как 400,
ошибки "не найдено" на forgot/resend - как 404.
*/

// --- Account ---

// ErrEmailAlreadyExists - аккаунт с таким email уже есть.
var ErrEmailAlreadyExists = New(
	CodeConflict,
	"account",
	"User already exists",
	http.StatusBadRequest,
)

// ErrAccountNotFound - аккаунт не найден.
var ErrAccountNotFound = New(
	CodeNotFound,
	"account",
	"User not found",
	http.StatusNotFound,
)

// ErrAlreadyVerified - email уже подтвержден.
var ErrAlreadyVerified = New(
	CodeAlreadyVerified,
	"account",
	"Email already verified",
	http.StatusBadRequest,
)

// ErrWeakPassword - пароль слишком короткий.
var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 6 characters required.",
	http.StatusBadRequest,
)

// --- Login ---

// ErrInvalidCredentials - неверный email или пароль (без уточнения, что именно).
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusBadRequest,
)

// ErrUnknownAccount - вариант с уточнением: такого аккаунта нет.
var ErrUnknownAccount = New(
	CodeNotFound,
	"auth",
	"User does not exist",
	http.StatusBadRequest,
)

// ErrIncorrectPassword - вариант с уточнением: пароль не подошел.
var ErrIncorrectPassword = New(
	CodeInvalidCredentials,
	"auth",
	"Incorrect password",
	http.StatusBadRequest,
)

// --- Verification ---

// ErrVerificationLinkMalformed - не удалось разобрать закодированную ссылку.
var ErrVerificationLinkMalformed = New(
	CodeValidationFailed,
	"request",
	"Invalid verification link",
	http.StatusBadRequest,
)

// ErrVerificationTokenMissing - в запросе нет токена.
var ErrVerificationTokenMissing = New(
	CodeValidationFailed,
	"request",
	"Verification token is missing",
	http.StatusBadRequest,
)

// ErrVerificationDataIncomplete - в запросе нет пары token+email.
var ErrVerificationDataIncomplete = New(
	CodeValidationFailed,
	"request",
	"Verification data is incomplete",
	http.StatusBadRequest,
)

// ErrVerificationTokenNotFound - токена нет (никогда не было или уже использован).
var ErrVerificationTokenNotFound = New(
	CodeNotFound,
	"verification",
	"Invalid or expired verification token. Please request a new verification email.",
	http.StatusBadRequest,
)

// ErrVerificationTokenExpired - токен есть, но срок истёк.
var ErrVerificationTokenExpired = New(
	CodeTokenExpired,
	"verification",
	"Verification token has expired. Please request a new verification email.",
	http.StatusBadRequest,
)

// --- Password reset ---

// ErrInvalidOrExpiredOTP - OTP не совпал или истёк.
var ErrInvalidOrExpiredOTP = New(
	CodeInvalidOrExpired,
	"reset",
	"Invalid or expired OTP",
	http.StatusBadRequest,
)

// --- Session ---

// ErrSessionTokenRequired - нет заголовка Authorization.
var ErrSessionTokenRequired = New(
	CodeForbidden,
	"session",
	"A token is required for authentication",
	http.StatusForbidden,
)

// ErrInvalidSessionToken - подпись, срок или формат токена неверны.
var ErrInvalidSessionToken = New(
	CodeUnauthorized,
	"session",
	"Invalid token",
	http.StatusUnauthorized,
)

// --- External services ---

// ErrEmailDeliveryFailed - внешний почтовый сервис недоступен.
var ErrEmailDeliveryFailed = New(
	CodeExternalServiceError,
	"email",
	"An error occurred while sending the email",
	http.StatusInternalServerError,
)

// ErrRateLimited - слишком много запросов с одного адреса.
var ErrRateLimited = New(
	CodeRateLimited,
	"request",
	"Too many requests, please try again later",
	http.StatusTooManyRequests,
)

// --- Submissions & Files ---

// ErrSubmissionNotFound - заявка не найдена.
var ErrSubmissionNotFound = New(
	CodeNotFound,
	"submission",
	"Submission not found",
	http.StatusNotFound,
)

// ErrEmailMismatch - email и подтверждение email не совпадают.
var ErrEmailMismatch = New(
	CodeValidationFailed,
	"validation",
	"Email addresses do not match",
	http.StatusBadRequest,
)

// ErrFileTooLarge - файл превышает максимальный размер.
var ErrFileTooLarge = New(
	CodeValidationFailed,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

// ErrInvalidFileType - MIME-тип файла не разрешен.
var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)
