package email

import "context"

// Provider определяет интерфейс для отправки email
type Provider interface {
	// Send отправляет письмо
	Send(ctx context.Context, email *Email) error

	// Validate проверяет конфигурацию провайдера
	Validate() error

	// Close закрывает соединение с провайдером
	Close() error
}

// TemplateRenderer определяет интерфейс для рендеринга шаблонов
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
	AddTemplate(name string, template string) error
	LoadTemplates(dirPath string) error
}

// Notifier - исходящие уведомления сервиса авторизации
type Notifier interface {
	SendVerification(ctx context.Context, to, link string) error
	SendResetOTP(ctx context.Context, to, otp string) error
}
