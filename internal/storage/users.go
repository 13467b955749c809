package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when no persisted user matches a login.
	ErrUserNotFound = errors.New("storage: user not found")
	// ErrUserExists is returned by AddUser when the email is taken.
	ErrUserExists = errors.New("storage: user already exists")
)

// UserDirectory answers login lookups against the user list kept in the
// messages blob.
type UserDirectory struct {
	messages *MessageLog
}

// NewUserDirectory returns a directory reading users through messages.
func NewUserDirectory(messages *MessageLog) *UserDirectory {
	return &UserDirectory{messages: messages}
}

// FindUser returns the user whose name matches exactly (after trimming)
// and whose email matches case-insensitively.
func (d *UserDirectory) FindUser(ctx context.Context, name, email string) (User, error) {
	users, err := d.messages.Users(ctx)
	if err != nil {
		return User{}, err
	}

	name = strings.TrimSpace(name)
	for _, u := range users {
		if strings.TrimSpace(u.Name) == name && sameEmail(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
