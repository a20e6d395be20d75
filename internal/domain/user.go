package domain

import "time"

// User is a platform-wide identity keyed by email. The same person signing up
// to two applications shares one User and owns two AppUsers.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AppUser binds a User to an Application. Email and PasswordHash are carried
// from the owning User so authentication needs a single lookup.
type AppUser struct {
	ID           string
	AppID        string
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
