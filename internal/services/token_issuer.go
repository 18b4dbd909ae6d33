package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"
)

type TokenKind int

const (
	TokenKindVerification TokenKind = iota
	TokenKindResetOTP
)

const (
	VerificationTokenBytes = 32
	VerificationTokenTTL   = 48 * time.Hour

	ResetOTPMin = 100000
	ResetOTPMax = 999999
	ResetOTPTTL = 10 * time.Minute
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindVerification:
		return "verification"
	case TokenKindResetOTP:
		return "reset_otp"
	default:
		return fmt.Sprintf("token_kind(%d)", int(k))
	}
}

// TokenIssuer выдает одноразовые секреты вместе со сроком действия
type TokenIssuer interface {
	Issue(kind TokenKind) (token string, expiresAt time.Time, err error)
}

type TokenIssuerImpl struct {
	entropy io.Reader
	now     func() time.Time
}

func NewTokenIssuer() TokenIssuer {
	return NewTokenIssuerWith(rand.Reader, time.Now)
}

// NewTokenIssuerWith позволяет подменить источник энтропии и часы
func NewTokenIssuerWith(entropy io.Reader, now func() time.Time) *TokenIssuerImpl {
	return &TokenIssuerImpl{entropy: entropy, now: now}
}

func (i *TokenIssuerImpl) Issue(kind TokenKind) (string, time.Time, error) {
	now := i.now()

	switch kind {
	case TokenKindVerification:
		buf := make([]byte, VerificationTokenBytes)
		if _, err := io.ReadFull(i.entropy, buf); err != nil {
			return "", time.Time{}, fmt.Errorf("read entropy: %w", err)
		}
		return hex.EncodeToString(buf), now.Add(VerificationTokenTTL), nil

	case TokenKindResetOTP:
		n, err := rand.Int(i.entropy, big.NewInt(ResetOTPMax-ResetOTPMin+1))
		if err != nil {
			return "", time.Time{}, fmt.Errorf("read entropy: %w", err)
		}
		return fmt.Sprintf("%06d", n.Int64()+ResetOTPMin), now.Add(ResetOTPTTL), nil

	default:
		return "", time.Time{}, fmt.Errorf("unknown token kind: %s", kind)
	}
}
