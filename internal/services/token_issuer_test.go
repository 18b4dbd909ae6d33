package services

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func fixedNow() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestTokenIssuer_Verification(t *testing.T) {
	issuer := NewTokenIssuerWith(rand.Reader, fixedNow)

	token, exp, err := issuer.Issue(TokenKindVerification)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
	assert.Equal(t, fixedNow().Add(48*time.Hour), exp)

	other, _, err := issuer.Issue(TokenKindVerification)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokenIssuer_ResetOTPRange(t *testing.T) {
	issuer := NewTokenIssuerWith(rand.Reader, fixedNow)

	for i := 0; i < 500; i++ {
		otp, exp, err := issuer.Issue(TokenKindResetOTP)
		require.NoError(t, err)
		require.Len(t, otp, 6)

		n, err := strconv.Atoi(otp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, ResetOTPMin)
		assert.LessOrEqual(t, n, ResetOTPMax)
		assert.Equal(t, fixedNow().Add(10*time.Minute), exp)
	}
}

func TestTokenIssuer_DeterministicEntropy(t *testing.T) {
	// Нулевые байты дают минимальный код
	issuer := NewTokenIssuerWith(bytes.NewReader(make([]byte, 64)), fixedNow)
	otp, _, err := issuer.Issue(TokenKindResetOTP)
	require.NoError(t, err)
	assert.Equal(t, "100000", otp)
}

func TestTokenIssuer_EntropyFailure(t *testing.T) {
	issuer := NewTokenIssuerWith(failingReader{}, fixedNow)

	_, _, err := issuer.Issue(TokenKindVerification)
	assert.ErrorContains(t, err, "entropy")

	_, _, err = issuer.Issue(TokenKindResetOTP)
	assert.ErrorContains(t, err, "entropy")

	_, _, err = issuer.Issue(TokenKind(42))
	assert.ErrorContains(t, err, "unknown token kind")
}

func TestVerificationPayload_RoundTrip(t *testing.T) {
	data := EncodeVerificationPayload("tok", "a@x.com", fixedNow())

	payload, err := DecodeVerificationPayload(data)
	require.NoError(t, err)
	assert.Equal(t, "tok", payload.Token)
	assert.Equal(t, "a@x.com", payload.Email)
	assert.Equal(t, fixedNow().UnixMilli(), payload.Timestamp)

	_, err = DecodeVerificationPayload("bm90LWpzb24=") // "not-json"
	assert.Error(t, err)
}
