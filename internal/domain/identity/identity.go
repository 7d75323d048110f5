package identity

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("identity: user not found")

// User is the lightweight profile used for existence checks at placement
// time. Degraded marks a fallback profile returned while the identity
// service was unreachable; callers can always tell it apart from a verified
// user.
type User struct {
	ID       string
	Name     string
	Email    string
	Degraded bool
}

// Gateway resolves user identifiers against the identity service.
type Gateway interface {
	GetUser(ctx context.Context, id string) (*User, error)
}
