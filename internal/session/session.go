// Package session keeps the signed-in session in local storage. It exchanges
// one-time cross-domain tokens for sessions, purges expired ones on read,
// and announces changes on a Bus.
package session

import (
	"time"
)

// Local storage keys.
const (
	KeyBlob  = "auth_session"
	KeyToken = "session_token"
)

// Identity service paths.
const (
	PathExchange = "/api/auth/cross-domain/exchange"
	PathSignOut  = "/api/auth/sign-out"
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Session is the identity service's session record.
type Session struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Blob is what the exchange returns and what is persisted under KeyBlob.
type Blob struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}

// Expired reports whether the session has passed its expiry. A zero expiry
// never expires.
func (b *Blob) Expired(now time.Time) bool {
	return !b.Session.ExpiresAt.IsZero() && !now.Before(b.Session.ExpiresAt)
}

var errorMessages = map[string]string{
	"no_session":    "Session expired. Please sign in again.",
	"invalid_token": "Invalid sign-in link. Please try again.",
	"token_expired": "Your sign-in link has expired. Please sign in again.",
	"access_denied": "Access was denied. Please try again.",
	"server_error":  "The sign-in service is unavailable. Please try again later.",
}

// ErrorMessage maps an auth_error code to display text. Unknown codes are
// returned unchanged.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return code
}
