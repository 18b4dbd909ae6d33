package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	argon2idPrefix = "$argon2id$"

	// MaxPasswordBytes - предел bcrypt, держим его для обоих алгоритмов
	MaxPasswordBytes = 72
)

var ErrUnsupportedHasher = errors.New("unsupported password hasher")

// PasswordHasher хеширует новые пароли выбранным алгоритмом.
// Проверка определяет алгоритм по самому хешу, поэтому смена
// алгоритма в конфиге не ломает вход для старых аккаунтов.
type PasswordHasher struct {
	algorithm string
	params    *argon2id.Params
}

func NewPasswordHasher(algorithm string) (*PasswordHasher, error) {
	switch algorithm {
	case "", HasherBcrypt:
		return &PasswordHasher{algorithm: HasherBcrypt}, nil
	case HasherArgon2id:
		return &PasswordHasher{algorithm: HasherArgon2id, params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHasher, algorithm)
	}
}

func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash создает хеш пароля
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == HasherArgon2id {
		return argon2id.CreateHash(password, h.params)
	}
	return HashPassword(password)
}

// Compare проверяет пароль против хеша любого поддерживаемого алгоритма
func (h *PasswordHasher) Compare(password, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	if strings.HasPrefix(hash, argon2idPrefix) {
		match, _, err := argon2id.CheckHash(password, hash)
		return match, err
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HashPassword создает bcrypt хеш пароля
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// ValidatePassword проверяет длину пароля: не короче minLength символов
// и не длиннее MaxPasswordBytes байт
func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes long", MaxPasswordBytes)
	}
	return nil
}
