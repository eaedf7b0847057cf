package core

import "context"

// User a host platform user, resolved by the session layer
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Session resolves the user behind an access token issued by the host
type Session interface {
	Login(ctx context.Context, accessToken string) (*User, error)
}
