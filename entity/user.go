package entity

import (
	"time"
)

// User is a Telegram contact known to the bot. A profile is created on first
// contact and overwritten on every subsequent one; users are never deleted.
// The admin flag is derived from the configured allow-list at upsert time and
// the allow-list always wins over whatever is stored.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
