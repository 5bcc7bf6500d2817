package domain

import "time"

// Session represents one authenticated or anonymous browsing session. Sessions
// are append-only: a rejected or logged-out session is closed by timestamp and
// never reopened; a new token is always issued instead.
type Session struct {
	Token      string
	UserID     int64 // 0 is the anonymous sentinel
	OpenedAt   time.Time
	ClosedAt   *time.Time // nil while the session is open
	SourceAddr string
}

// Open reports whether the session has not been closed.
func (s *Session) Open() bool {
	return s != nil && s.ClosedAt == nil
}
