package domain

import "time"

// Session binds a conversation to exactly one technology. All answer
// requests carrying the session resolve against that technology's
// collection until the caller switches context.
type Session struct {
	ID           string    `json:"id"`
	TechnologyID string    `json:"technology_id"`
	Token        string    `json:"token,omitempty"` // signed JWT carrying the binding
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.LastUsedAt = time.Now()
}

// SessionLimits controls housekeeping of the session store.
type SessionLimits struct {
	// MaxSessions is the trigger point for cleanup
	MaxSessions int
	// KeepSessions is how many recent sessions survive a cleanup
	KeepSessions int
	// TTL bounds how long an idle session stays resolvable
	TTL time.Duration
}

// DefaultSessionLimits mirrors the housekeeping the service applies when
// no limits are configured: clean at 500, keep the newest 400, idle 7d.
func DefaultSessionLimits() SessionLimits {
	return SessionLimits{
		MaxSessions:  500,
		KeepSessions: 400,
		TTL:          7 * 24 * time.Hour,
	}
}
