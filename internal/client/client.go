package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError - ответ сервера со статусом >= 400
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LoginResponse struct {
	Success           bool   `json:"success"`
	Verified          bool   `json:"verified"`
	NeedsVerification bool   `json:"needsVerification"`
	Message           string `json:"message"`
	Token             string `json:"token"`
	Email             string `json:"email"`
	Username          string `json:"username"`
}

type ProtectedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    struct {
		Email    string `json:"email"`
		UserID   string `json:"userId"`
		Username string `json:"username"`
	} `json:"user"`
}

type Submission struct {
	SubmissionID    string                 `json:"submissionId"`
	PaperTitle      string                 `json:"paperTitle"`
	AuthorName      string                 `json:"authorName"`
	Email           string                 `json:"email"`
	Category        string                 `json:"category"`
	Topic           string                 `json:"topic"`
	AbstractFileURL string                 `json:"abstractFileUrl"`
	Status          string                 `json:"status"`
	Details         map[string]interface{} `json:"details"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type SubmissionResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	SubmissionID string      `json:"submissionId"`
	PaperDetails *Submission `json:"paperDetails"`
}

type UserSubmissionResponse struct {
	Success       bool        `json:"success"`
	HasSubmission bool        `json:"hasSubmission"`
	Submission    *Submission `json:"submission"`
}

type UserSubmissionsResponse struct {
	Success     bool         `json:"success"`
	Count       int          `json:"count"`
	Submissions []Submission `json:"submissions"`
}

// Client - типизированный HTTP-клиент API конференции
type Client struct {
	baseURL string
	http    *http.Client
	cache   *SessionCache
}

func New(baseURL string, cache *SessionCache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.doJSON(ctx, http.MethodPost, "/signin", map[string]string{"email": email, "password": password}, false, &out)
	return &out, err
}

// Login сохраняет сессию в кэш, если аккаунт подтвержден
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, false, &out); err != nil {
		return nil, err
	}
	if out.Success && out.Token != "" && c.cache != nil {
		if err := c.cache.Set(Session{Token: out.Token, User: User{Email: out.Email, Username: out.Username}}); err != nil {
			return &out, err
		}
	}
	return &out, nil
}

func (c *Client) Logout() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear()
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.doJSON(ctx, http.MethodGet, "/verify-email?token="+url.QueryEscape(token), nil, false, &out)
	return &out, err
}

func (c *Client) ResendVerification(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.doJSON(ctx, http.MethodPost, "/resend-verification", map[string]string{"email": email}, false, &out)
	return &out, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.doJSON(ctx, http.MethodPost, "/forgot-password", map[string]string{"email": email}, false, &out)
	return &out, err
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) (*MessageResponse, error) {
	var out MessageResponse
	body := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	err := c.doJSON(ctx, http.MethodPost, "/reset-password", body, false, &out)
	return &out, err
}

func (c *Client) Protected(ctx context.Context) (*ProtectedResponse, error) {
	var out ProtectedResponse
	err := c.doJSON(ctx, http.MethodGet, "/protected", nil, true, &out)
	return &out, err
}

func (c *Client) MySubmission(ctx context.Context) (*UserSubmissionResponse, error) {
	var out UserSubmissionResponse
	err := c.doJSON(ctx, http.MethodGet, "/user-submission", nil, true, &out)
	return &out, err
}

func (c *Client) MySubmissions(ctx context.Context) (*UserSubmissionsResponse, error) {
	var out UserSubmissionsResponse
	err := c.doJSON(ctx, http.MethodGet, "/user-submissions", nil, true, &out)
	return &out, err
}

// SubmitPaper отправляет форму; abstractPath может быть пустым
func (c *Client) SubmitPaper(ctx context.Context, fields map[string]string, abstractPath string) (*SubmissionResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if abstractPath != "" {
		if err := attachFile(mw, "abstract", abstractPath); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit-paper", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var out SubmissionResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	if c.cache != nil && out.SubmissionID != "" {
		if err := c.cache.SetLastSubmission(out.SubmissionID); err != nil {
			return &out, err
		}
	}
	return &out, nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreatePart(fileHeader(field, filepath.Base(path)))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, withSession bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withSession {
		c.authorize(req)
	}
	return c.send(req, out)
}

// authorize кладет токен как есть, без "Bearer "
func (c *Client) authorize(req *http.Request) {
	if c.cache == nil {
		return
	}
	if token := c.cache.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var msg MessageResponse
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
