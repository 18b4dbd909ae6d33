package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - ключ, по которому хранится *gorm.DB в context
const DBContextKey = contextKey("db")

// ClaimsContextKey - ключ для claims сессии, положенных SessionGuard
const ClaimsContextKey = contextKey("session_claims")
