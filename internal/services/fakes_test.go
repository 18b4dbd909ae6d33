package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"conference_backend/internal/models"
	"conference_backend/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeAccountRepo держит аккаунты в памяти. Условные обновления
// выполняются под мьютексом, как один UPDATE ... WHERE в базе.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.Account)}
}

func (r *fakeAccountRepo) byEmail(email string) *models.Account {
	email = models.NormalizeEmail(email)
	for _, a := range r.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (r *fakeAccountRepo) get(email string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byEmail(email)
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func (r *fakeAccountRepo) Create(_ *gorm.DB, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.Email = models.NormalizeEmail(account.Email)
	if r.byEmail(account.Email) != nil {
		return repositories.ErrAccountAlreadyExists
	}
	// уникальный индекс на username
	for _, a := range r.accounts {
		if a.Username == account.Username {
			return repositories.ErrAccountAlreadyExists
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) FindByEmail(_ *gorm.DB, email string) (*models.Account, error) {
	if a := r.get(email); a != nil {
		return a, nil
	}
	return nil, repositories.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByVerificationToken(_ *gorm.DB, token string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrVerificationTokenUnknown
}

func (r *fakeAccountRepo) NextAvailableUsername(_ *gorm.DB, base string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	used := make(map[string]bool)
	for _, a := range r.accounts {
		if strings.HasPrefix(a.Username, base) {
			used[a.Username] = true
		}
	}
	if !used[base] {
		return base, nil
	}
	for i := 1; ; i++ {
		if c := base + strconv.Itoa(i); !used[c] {
			return c, nil
		}
	}
}

func (r *fakeAccountRepo) Delete(_ *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return repositories.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) SetVerificationToken(_ *gorm.DB, accountID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	a.VerificationToken = &token
	a.VerificationExpires = &expiresAt
	return nil
}

func (r *fakeAccountRepo) ConsumeVerificationToken(_ *gorm.DB, token, email string, now time.Time) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.VerificationToken == nil || *a.VerificationToken != token {
			continue
		}
		if email != "" && a.Email != models.NormalizeEmail(email) {
			return nil, repositories.ErrVerificationTokenUnknown
		}
		if a.VerificationExpired(now) {
			return nil, repositories.ErrVerificationTokenExpired
		}
		a.Verified = true
		a.VerificationToken = nil
		a.VerificationExpires = nil
		cp := *a
		return &cp, nil
	}
	return nil, repositories.ErrVerificationTokenUnknown
}

func (r *fakeAccountRepo) ListPendingVerifications(_ *gorm.DB) ([]models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Account
	for _, a := range r.accounts {
		if a.VerificationToken != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) SetResetOTP(_ *gorm.DB, accountID, otp string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	a.ResetOTP = &otp
	a.ResetOTPExpires = &expiresAt
	return nil
}

func (r *fakeAccountRepo) ResetPasswordWithOTP(_ *gorm.DB, email, otp, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byEmail(email)
	if a == nil || a.ResetOTP == nil || *a.ResetOTP != otp || a.ResetOTPExpires == nil || !a.ResetOTPExpires.After(now) {
		return repositories.ErrResetOTPRejected
	}
	a.PasswordHash = passwordHash
	a.ResetOTP = nil
	a.ResetOTPExpires = nil
	return nil
}

func (r *fakeAccountRepo) PurgeExpiredResetOTPs(_ *gorm.DB, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if a.ResetOTP != nil && a.ResetOTPExpires != nil && !a.ResetOTPExpires.After(now) {
			a.ResetOTP = nil
			a.ResetOTPExpires = nil
			n++
		}
	}
	return n, nil
}

// staleUsernameRepo отдает базовый username первые stale вызовов, как
// параллельная регистрация, прочитавшая таблицу до чужой вставки.
type staleUsernameRepo struct {
	*fakeAccountRepo
	stale int
}

func (r *staleUsernameRepo) NextAvailableUsername(db *gorm.DB, base string) (string, error) {
	r.mu.Lock()
	if r.stale > 0 {
		r.stale--
		r.mu.Unlock()
		return base, nil
	}
	r.mu.Unlock()
	return r.fakeAccountRepo.NextAvailableUsername(db, base)
}

// fakeNotifier запоминает отправленные ссылки и коды
type fakeNotifier struct {
	mu    sync.Mutex
	links map[string]string
	otps  map[string]string
	err   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{links: make(map[string]string), otps: make(map[string]string)}
}

func (n *fakeNotifier) SendVerification(_ context.Context, to, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.links[to] = link
	return nil
}

func (n *fakeNotifier) SendResetOTP(_ context.Context, to, otp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.otps[to] = otp
	return nil
}

func (n *fakeNotifier) fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// testClock - управляемые часы
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
