package domain

import (
	"errors"
	"strings"
	"time"
)

// AnonymousUserID is the sentinel owner of anonymous (traffic-stats) sessions.
const AnonymousUserID int64 = 0

// DefaultPermissionFlags is the permission bitmask assigned to self-registered users.
const DefaultPermissionFlags int64 = 3

// User is a registered principal. Users are created once and never deleted;
// Username is derived from the email local-part and immutable.
type User struct {
	ID              int64
	Email           string
	Username        string
	PermissionFlags int64
	// PasswordHash is set only in password login mode; empty in email-link mode.
	PasswordHash string
	CreatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// UsernameFromEmail derives the immutable username from an email address:
// the lower-cased local part before '@'.
func UsernameFromEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
