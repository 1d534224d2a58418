package chat

import "time"

// Session is a registered client bound to a bearer token.
type Session struct {
	Token       string    `json:"token"`
	DisplayName string    `json:"username"`
	PlaceID     int64     `json:"placeId"`
	JobID       string    `json:"jobId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
