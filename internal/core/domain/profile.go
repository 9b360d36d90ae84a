package domain

import "time"

// Profile mirrors the persisted representation in the users table of the backing store.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL *string
	CreatedAt time.Time
}
