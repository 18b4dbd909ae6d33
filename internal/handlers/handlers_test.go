package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"conference_backend/internal/auth"
	"conference_backend/internal/logger"
	"conference_backend/internal/middleware"
	"conference_backend/internal/models"
	"conference_backend/internal/services/dto"
	"conference_backend/internal/validator"
	"conference_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Discard()
}

// ---- заглушки сервисов ----

type stubAuthService struct {
	signup      func(req *dto.SignupRequest) (*dto.SignupResult, error)
	verify      func(token string) error
	verifyPair  func(token, email string) error
	verifyData  func(data string) error
	resend      func(email string) (*dto.ResendResult, error)
	login       func(req *dto.LoginRequest) (*dto.LoginResult, error)
	forgot      func(email string) error
	reset       func(req *dto.ResetPasswordRequest) error
	debugTokens []dto.PendingToken
}

func (s *stubAuthService) Signup(_ context.Context, _ *gorm.DB, req *dto.SignupRequest) (*dto.SignupResult, error) {
	return s.signup(req)
}

func (s *stubAuthService) VerifyEmail(_ context.Context, _ *gorm.DB, token string) (*models.Account, error) {
	return &models.Account{}, s.verify(token)
}

func (s *stubAuthService) VerifyEmailWithEmail(_ context.Context, _ *gorm.DB, token, email string) (*models.Account, error) {
	return &models.Account{}, s.verifyPair(token, email)
}

func (s *stubAuthService) VerifyEmailPayload(_ context.Context, _ *gorm.DB, data string) (*models.Account, error) {
	return &models.Account{}, s.verifyData(data)
}

func (s *stubAuthService) ResendVerification(_ context.Context, _ *gorm.DB, email string) (*dto.ResendResult, error) {
	return s.resend(email)
}

func (s *stubAuthService) Login(_ context.Context, _ *gorm.DB, req *dto.LoginRequest) (*dto.LoginResult, error) {
	return s.login(req)
}

func (s *stubAuthService) ForgotPassword(_ context.Context, _ *gorm.DB, email string) error {
	return s.forgot(email)
}

func (s *stubAuthService) ResetPassword(_ context.Context, _ *gorm.DB, req *dto.ResetPasswordRequest) error {
	return s.reset(req)
}

func (s *stubAuthService) DebugTokens(context.Context, *gorm.DB) ([]dto.PendingToken, error) {
	return s.debugTokens, nil
}

type stubSubmissionService struct {
	created  *dto.SubmissionRequest
	file     []byte
	fileName string
	latest   *models.Submission
	all      []models.Submission
	listedBy string
	tables   []string
	err      error
}

func (s *stubSubmissionService) Create(_ context.Context, _ *gorm.DB, req *dto.SubmissionRequest, file *dto.AbstractFile) (*models.Submission, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = req
	if file != nil {
		s.fileName = file.Name
		s.file, _ = io.ReadAll(file.Reader)
	}
	return &models.Submission{SubmissionID: "SUB-1", PaperTitle: req.PaperTitle, Email: req.Email, Status: models.SubmissionStatusUnderReview}, nil
}

func (s *stubSubmissionService) ListForEmail(_ context.Context, _ *gorm.DB, email string) ([]models.Submission, error) {
	s.listedBy = email
	return s.all, s.err
}

func (s *stubSubmissionService) LatestForEmail(context.Context, *gorm.DB, string) (*models.Submission, error) {
	return s.latest, s.err
}

func (s *stubSubmissionService) ListCollections(context.Context, *gorm.DB) ([]string, error) {
	return s.tables, s.err
}

// ---- роутер ----

type testEnv struct {
	router *gin.Engine
	tokens *auth.TokenManager
}

func newTestEnv(authSvc *stubAuthService, subSvc *stubSubmissionService) *testEnv {
	base := NewBaseHandler(validator.New())
	authH := NewAuthHandler(base, authSvc)
	subH := NewSubmissionHandler(base, subSvc)
	sysH := NewSystemHandler(base, authSvc, subSvc)
	tokens := auth.NewTokenManager("handler-secret", time.Hour)

	r := gin.New()
	r.Use(middleware.DBMiddleware(nil))
	r.POST("/signin", authH.Signup)
	r.GET("/verify-email", authH.VerifyEmail)
	r.POST("/verify-email-token", authH.VerifyEmailToken)
	r.GET("/verify", authH.VerifyPayload)
	r.POST("/login", authH.Login)
	r.POST("/forgot-password", authH.ForgotPassword)
	r.POST("/reset-password", authH.ResetPassword)
	r.POST("/resend-verification", authH.ResendVerification)
	r.GET("/protected", middleware.SessionGuard(tokens), authH.Protected)
	r.POST("/submit-paper", middleware.OptionalSession(tokens), subH.SubmitPaper)
	r.GET("/user-submission", middleware.SessionGuard(tokens), subH.UserSubmission)
	r.GET("/user-submissions", middleware.SessionGuard(tokens), subH.UserSubmissions)
	r.GET("/collections", sysH.Collections)
	r.GET("/debug/tokens", sysH.DebugTokens)

	return &testEnv{router: r, tokens: tokens}
}

func (e *testEnv) do(method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ---- тесты ----

func TestSignupResponses(t *testing.T) {
	sent := true
	svc := &stubAuthService{signup: func(req *dto.SignupRequest) (*dto.SignupResult, error) {
		if req.Email == "taken@x.com" {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return &dto.SignupResult{Account: &models.Account{Email: req.Email}, EmailSent: sent}, nil
	}}
	env := newTestEnv(svc, &stubSubmissionService{})

	w := env.do(http.MethodPost, "/signin", gin.H{"email": "a@x.com", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, msgSignupOK, body["message"])

	sent = false
	w = env.do(http.MethodPost, "/signin", gin.H{"email": "a@x.com", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, msgSignupEmailFailed, decode(t, w)["message"])

	w = env.do(http.MethodPost, "/signin", gin.H{"email": "taken@x.com", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "User already exists", body["message"])

	w = env.do(http.MethodPost, "/signin", gin.H{"email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestVerifyTransports(t *testing.T) {
	var got []string
	svc := &stubAuthService{
		verify: func(token string) error {
			if token == "" {
				return apperrors.ErrVerificationTokenMissing
			}
			if token == "bad" {
				return apperrors.ErrVerificationTokenNotFound
			}
			got = append(got, "link:"+token)
			return nil
		},
		verifyPair: func(token, email string) error {
			got = append(got, "pair:"+token+":"+email)
			return nil
		},
		verifyData: func(data string) error {
			got = append(got, "data:"+data)
			return nil
		},
	}
	env := newTestEnv(svc, &stubSubmissionService{})

	w := env.do(http.MethodGet, "/verify-email?token=abc", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgVerified, decode(t, w)["message"])

	w = env.do(http.MethodGet, "/verify-email", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Verification token is missing", decode(t, w)["message"])

	w = env.do(http.MethodGet, "/verify-email?token=bad", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/verify-email-token", gin.H{"token": "t", "email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/verify?data=ZGF0YQ", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"link:abc", "pair:t:a@x.com", "data:ZGF0YQ"}, got)
}

func TestLoginResponses(t *testing.T) {
	svc := &stubAuthService{login: func(req *dto.LoginRequest) (*dto.LoginResult, error) {
		switch req.Email {
		case "new@x.com":
			return &dto.LoginResult{NeedsVerification: true, Email: req.Email}, nil
		case "bad@x.com":
			return nil, apperrors.ErrInvalidCredentials
		default:
			return &dto.LoginResult{Token: "jwt", Email: req.Email, Username: "ok", UserID: "u1"}, nil
		}
	}}
	env := newTestEnv(svc, &stubSubmissionService{})

	w := env.do(http.MethodPost, "/login", gin.H{"email": "ok@x.com", "password": "p"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "jwt", body["token"])
	assert.Equal(t, "ok", body["username"])

	w = env.do(http.MethodPost, "/login", gin.H{"email": "new@x.com", "password": "p"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, false, body["verified"])
	assert.Equal(t, true, body["needsVerification"])
	assert.Equal(t, msgNeedsVerification, body["message"])
	assert.NotContains(t, body, "token")

	w = env.do(http.MethodPost, "/login", gin.H{"email": "bad@x.com", "password": "p"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["message"])
}

func TestPasswordResetResponses(t *testing.T) {
	svc := &stubAuthService{
		forgot: func(email string) error {
			if email == "ghost@x.com" {
				return apperrors.ErrAccountNotFound
			}
			return nil
		},
		reset: func(req *dto.ResetPasswordRequest) error {
			if req.OTP != "123456" {
				return apperrors.ErrInvalidOrExpiredOTP
			}
			return nil
		},
	}
	env := newTestEnv(svc, &stubSubmissionService{})

	w := env.do(http.MethodPost, "/forgot-password", gin.H{"email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgOTPSent, decode(t, w)["message"])

	w = env.do(http.MethodPost, "/forgot-password", gin.H{"email": "ghost@x.com"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/reset-password", gin.H{"email": "a@x.com", "otp": "123456", "newPassword": "secret2"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgPasswordReset, decode(t, w)["message"])

	w = env.do(http.MethodPost, "/reset-password", gin.H{"email": "a@x.com", "otp": "654321", "newPassword": "secret2"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired OTP", decode(t, w)["message"])

	// OTP не из 6 цифр отсекается валидатором
	w = env.do(http.MethodPost, "/reset-password", gin.H{"email": "a@x.com", "otp": "12ab", "newPassword": "secret2"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "otp: Must be a 6-digit code", decode(t, w)["message"])
}

func TestResendResponses(t *testing.T) {
	sent := true
	svc := &stubAuthService{resend: func(email string) (*dto.ResendResult, error) {
		if email == "done@x.com" {
			return nil, apperrors.ErrAlreadyVerified
		}
		return &dto.ResendResult{EmailSent: sent}, nil
	}}
	env := newTestEnv(svc, &stubSubmissionService{})

	w := env.do(http.MethodPost, "/resend-verification", gin.H{"email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgVerificationSent, decode(t, w)["message"])

	w = env.do(http.MethodPost, "/resend-verification", gin.H{"email": "done@x.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already verified", decode(t, w)["message"])

	// письмо не ушло, но новый токен уже сохранен: мягкое предупреждение
	sent = false
	w = env.do(http.MethodPost, "/resend-verification", gin.H{"email": "a@x.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, msgResendEmailFailed, body["message"])
}

func TestProtectedAndUserSubmission(t *testing.T) {
	subs := &stubSubmissionService{}
	env := newTestEnv(&stubAuthService{}, subs)
	token, _, err := env.tokens.Generate("u1", "a@x.com", "a")
	require.NoError(t, err)
	authHeader := map[string]string{"Authorization": token}

	w := env.do(http.MethodGet, "/protected", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, msgProtected, body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "u1", user["userId"])

	w = env.do(http.MethodGet, "/user-submission", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["hasSubmission"])

	subs.latest = &models.Submission{SubmissionID: "SUB-9", Email: "a@x.com"}
	w = env.do(http.MethodGet, "/user-submission", nil, authHeader)
	body = decode(t, w)
	assert.Equal(t, true, body["hasSubmission"])
	assert.Equal(t, "SUB-9", body["submission"].(map[string]interface{})["submissionId"])

	w = env.do(http.MethodGet, "/user-submission", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserSubmissionsList(t *testing.T) {
	subs := &stubSubmissionService{}
	env := newTestEnv(&stubAuthService{}, subs)
	token, _, err := env.tokens.Generate("u1", "a@x.com", "a")
	require.NoError(t, err)
	authHeader := map[string]string{"Authorization": token}

	w := env.do(http.MethodGet, "/user-submissions", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["submissions"])
	assert.Equal(t, "a@x.com", subs.listedBy)

	subs.all = []models.Submission{{SubmissionID: "SUB-2"}, {SubmissionID: "SUB-1"}}
	w = env.do(http.MethodGet, "/user-submissions", nil, authHeader)
	body = decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	list := body["submissions"].([]interface{})
	assert.Equal(t, "SUB-2", list[0].(map[string]interface{})["submissionId"])

	w = env.do(http.MethodGet, "/user-submissions", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitPaperMultipart(t *testing.T) {
	subs := &stubSubmissionService{}
	env := newTestEnv(&stubAuthService{}, subs)
	token, _, _ := env.tokens.Generate("u1", "a@x.com", "a")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"paperTitle": "On Graphs",
		"authorName": "Alice",
		"email":      "a@x.com",
		"category":   "Research",
		"university": "KBTU",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="abstract"; filename="paper.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit-paper", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "SUB-1", body["submissionId"])

	require.NotNil(t, subs.created)
	assert.Equal(t, "On Graphs", subs.created.PaperTitle)
	assert.Equal(t, "u1", subs.created.AccountID)
	assert.Equal(t, map[string]string{"university": "KBTU"}, subs.created.Details)
	assert.Equal(t, "paper.pdf", subs.fileName)
	assert.Equal(t, "%PDF-1.4", string(subs.file))
}

func TestSubmitPaperErrors(t *testing.T) {
	subs := &stubSubmissionService{err: apperrors.ErrFileTooLarge}
	env := newTestEnv(&stubAuthService{}, subs)

	w := env.do(http.MethodPost, "/submit-paper", gin.H{"paperTitle": "T"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/submit-paper", gin.H{
		"paperTitle": "T", "authorName": "A", "email": "a@x.com", "category": "C",
	}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSystemRoutes(t *testing.T) {
	authSvc := &stubAuthService{debugTokens: []dto.PendingToken{
		{Email: "a@x.com", TokenLength: 64, Expires: time.Now().Add(time.Hour)},
	}}
	subs := &stubSubmissionService{tables: []string{"accounts", "submissions"}}
	env := newTestEnv(authSvc, subs)

	w := env.do(http.MethodGet, "/collections", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tables []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	assert.Equal(t, []string{"accounts", "submissions"}, tables)

	w = env.do(http.MethodGet, "/debug/tokens", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	first := body["users"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, first["tokenExists"])
	assert.Equal(t, float64(64), first["tokenLength"])
}
