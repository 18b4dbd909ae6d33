package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User - данные пользователя, сохраненные после входа
type User struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session - локальная сессия CLI
type Session struct {
	Token            string `json:"token"`
	User             User   `json:"user"`
	LastSubmissionID string `json:"lastSubmissionId,omitempty"`
}

type EventKind int

const (
	SessionStarted EventKind = iota + 1
	SessionCleared
)

func (k EventKind) String() string {
	switch k {
	case SessionStarted:
		return "session_started"
	case SessionCleared:
		return "session_cleared"
	default:
		return "unknown"
	}
}

// SessionEvent получают подписчики при входе и выходе
type SessionEvent struct {
	Kind    EventKind
	Session Session
}

// SessionCache хранит сессию в JSON-файле (0600) и оповещает подписчиков об изменениях
type SessionCache struct {
	path string

	mu      sync.RWMutex
	session *Session

	subMu  sync.Mutex
	subs   map[int]func(SessionEvent)
	nextID int
}

// NewSessionCache читает сессию из path, если файл есть
func NewSessionCache(path string) (*SessionCache, error) {
	c := &SessionCache{path: path, subs: make(map[int]func(SessionEvent))}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode session file %s: %w", path, err)
		}
		if s.Token != "" {
			c.session = &s
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read session file %s: %w", path, err)
	}
	return c, nil
}

// DefaultSessionPath - ~/.confctl/session.json
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".confctl-session.json"
	}
	return filepath.Join(home, ".confctl", "session.json")
}

func (c *SessionCache) Get() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *SessionCache) Token() string {
	s, _ := c.Get()
	return s.Token
}

func (c *SessionCache) Set(s Session) error {
	if s.Token == "" {
		return errors.New("session token is empty")
	}

	c.mu.Lock()
	if err := c.persist(&s); err != nil {
		c.mu.Unlock()
		return err
	}
	c.session = &s
	c.mu.Unlock()

	c.notify(SessionEvent{Kind: SessionStarted, Session: s})
	return nil
}

// SetLastSubmission запоминает ID последней поданной заявки
func (c *SessionCache) SetLastSubmission(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	updated := *c.session
	updated.LastSubmissionID = id
	if err := c.persist(&updated); err != nil {
		return err
	}
	c.session = &updated
	return nil
}

func (c *SessionCache) Clear() error {
	c.mu.Lock()
	prev := c.session
	c.session = nil
	err := os.Remove(c.path)
	c.mu.Unlock()

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	if prev != nil {
		c.notify(SessionEvent{Kind: SessionCleared, Session: *prev})
	}
	return nil
}

// IsAuthenticated проверяет наличие токена и его exp.
// Подпись не проверяется, это делает сервер.
func (c *SessionCache) IsAuthenticated(now time.Time) bool {
	token := c.Token()
	if token == "" {
		return false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Before(claims.ExpiresAt.Time)
}

// Subscribe регистрирует наблюдателя; возвращает функцию отписки
func (c *SessionCache) Subscribe(fn func(SessionEvent)) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *SessionCache) notify(ev SessionEvent) {
	c.subMu.Lock()
	subs := make([]func(SessionEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// persist пишет во временный файл и переименовывает его
func (c *SessionCache) persist(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
