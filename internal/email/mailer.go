package email

import (
	"context"
	"fmt"

	"conference_backend/internal/logger"
)

const (
	subjectVerification = "Please Verify Your Email Address"
	subjectResetOTP     = "Password Reset OTP"
)

// Mailer собирает письма из шаблонов и отдает их провайдеру
type Mailer struct {
	provider Provider
	renderer TemplateRenderer
	from     string

	verificationTTL string
	otpTTL          string
}

func NewMailer(provider Provider, renderer TemplateRenderer, from string) *Mailer {
	return &Mailer{
		provider:        provider,
		renderer:        renderer,
		from:            from,
		verificationTTL: "48 hours",
		otpTTL:          "10 minutes",
	}
}

func (m *Mailer) SendVerification(ctx context.Context, to, link string) error {
	err := m.send(ctx, to, subjectVerification, TemplateVerification, TemplateData{
		"Link":      link,
		"ExpiresIn": m.verificationTTL,
	})
	logger.EmailLog(TemplateVerification, to, err)
	return err
}

func (m *Mailer) SendResetOTP(ctx context.Context, to, otp string) error {
	err := m.send(ctx, to, subjectResetOTP, TemplateResetOTP, TemplateData{
		"OTP":       otp,
		"ExpiresIn": m.otpTTL,
	})
	logger.EmailLog(TemplateResetOTP, to, err)
	return err
}

func (m *Mailer) send(ctx context.Context, to, subject, templateName string, data TemplateData) error {
	body, err := m.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}

	return m.provider.Send(ctx, &Email{
		From:     m.from,
		To:       []string{to},
		Subject:  subject,
		HTMLBody: body,
	})
}
