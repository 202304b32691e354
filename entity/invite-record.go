package entity

import "time"

// InviteRecord is one issued invite code in a user's history.
// Records are immutable once appended; history order is chronological.
// ExpiresAt is nil only for permanent codes generated by admins.
type InviteRecord struct {
	Code           string     `json:"invite_code"`
	RequestedAt    time.Time  `json:"requested_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	AdminGenerated bool       `json:"is_admin_generated"`
}

// Expired reports whether the code is past its expiry. Permanent codes
// never expire.
func (r *InviteRecord) Expired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return now.After(*r.ExpiresAt)
}

// AllocatedCode is the canonical shape of a code returned by the instance
// API. The client decodes both single-object and list responses into it.
type AllocatedCode struct {
	Code      string     `json:"code" validate:"required"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Issuance is the result of a completed invite request: the recorded code
// plus a display-ready registration URL.
type Issuance struct {
	Record InviteRecord
	URL    string
}

// Challenge is a pending captcha the user must answer before issuance
// continues. The answer itself stays in the store, never in the transport.
type Challenge struct {
	Image []byte
	TTL   time.Duration
}
