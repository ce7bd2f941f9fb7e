package entity

import (
	"time"
)

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PhotoURL     string `json:"photo_url,omitempty"`
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserProfile is the public view of a user, annotated with presence.
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url,omitempty"`
	Online   bool   `json:"online"`
}

func (u *User) Profile(online bool) UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
		PhotoURL: u.PhotoURL,
		Online:   online,
	}
}
