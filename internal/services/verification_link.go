package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"
)

var errMalformedPayload = errors.New("malformed verification payload")

// VerificationLink строит ссылку подтверждения для фронтенда
func VerificationLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/login?token=" + url.QueryEscape(token)
}

// VerificationPayload - содержимое устаревшей ссылки /verify?data=
type VerificationPayload struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeVerificationPayload кодирует токен и email в base64(JSON)
func EncodeVerificationPayload(token, email string, at time.Time) string {
	raw, _ := json.Marshal(VerificationPayload{
		Token:     token,
		Email:     email,
		Timestamp: at.UnixMilli(),
	})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeVerificationPayload принимает стандартный и URL-safe base64
func DecodeVerificationPayload(data string) (*VerificationPayload, error) {
	// '+' из query-строки приходит пробелом
	data = strings.ReplaceAll(strings.TrimSpace(data), " ", "+")

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err = enc.DecodeString(data); err == nil {
			break
		}
	}
	if err != nil {
		return nil, errMalformedPayload
	}

	var payload VerificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errMalformedPayload
	}
	return &payload, nil
}
