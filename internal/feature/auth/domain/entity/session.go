package entity

import "time"

// Session is one signed-in device, identified by its refresh token.
// Access tokens carry the session ID, so revoking the session signs the device out
// before its access token expires.
type Session struct {
	ID        string // 64-character hex refresh token
	UserID    string
	UserAgent string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil while active
}

// ExpiredAt reports whether the session has passed its expiry at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsRevoked reports whether the session was signed out.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// ActiveAt reports whether the session can still be used at now.
func (s *Session) ActiveAt(now time.Time) bool {
	return !s.IsRevoked() && !s.ExpiredAt(now)
}

// TTL returns how long the session has left at now, never negative.
func (s *Session) TTL(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
