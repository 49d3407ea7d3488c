package model

import (
	"log/slog"
	"time"
)

// Credentials identify the company account used against the booking API.
// The REST dialect authenticates with Login and Secret; the JSON-RPC dialect
// authenticates with APIKey. Values are supplied by configuration and must
// never be logged or persisted.
type Credentials struct {
	Company string
	Login   string
	Secret  string
	APIKey  string
}

// LogValue keeps secrets out of structured logs. Only the company identifier
// is emitted.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("company", c.Company))
}

// String mirrors LogValue for fmt verbs.
func (c Credentials) String() string {
	return "company=" + c.Company
}

// Session is a bearer token issued by the booking API together with the
// instant after which the API stops accepting it.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the session may still be used at now while keeping
// margin in reserve for clock skew and in-flight requests.
func (s Session) ValidAt(now time.Time, margin time.Duration) bool {
	if s.Token == "" {
		return false
	}
	return now.Before(s.ExpiresAt.Add(-margin))
}
