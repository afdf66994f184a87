package auth

import "time"

// Identity is the verified principal of a single request. It is derived from
// token claims by the auth gate and never persisted.
type Identity struct {
	OwnerID   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (i Identity) Valid() bool {
	return i.OwnerID != ""
}
