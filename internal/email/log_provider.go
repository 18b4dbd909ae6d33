package email

import (
	"context"
	"errors"
	"sync"

	"conference_backend/internal/logger"
)

// LogProvider не отправляет письма, а пишет их в лог.
// Используется в разработке и в тестах; FailWith имитирует сбой доставки.
type LogProvider struct {
	mu       sync.Mutex
	sent     []Email
	failWith error
}

func NewLogProvider() *LogProvider {
	return &LogProvider{}
}

func (p *LogProvider) Send(ctx context.Context, email *Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}

	p.sent = append(p.sent, *email)
	logger.CtxInfo(ctx, "email captured", "to", email.To, "subject", email.Subject)
	return nil
}

func (p *LogProvider) Validate() error { return nil }
func (p *LogProvider) Close() error    { return nil }

// FailWith заставляет последующие Send возвращать err (nil снимает сбой)
func (p *LogProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Sent возвращает копию отправленных писем
func (p *LogProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.sent))
	copy(out, p.sent)
	return out
}

// Last возвращает последнее письмо
func (p *LogProvider) Last() (Email, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return Email{}, errors.New("no emails sent")
	}
	return p.sent[len(p.sent)-1], nil
}
