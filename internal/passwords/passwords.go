// Package passwords hashes and checks patient and admin passwords with bcrypt.
package passwords

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for new hashes.
const Cost = 12

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

var (
	// ErrEmpty is returned when asked to hash an empty password.
	ErrEmpty = errors.New("password is empty")
	// ErrTooLong is returned for passwords over MaxBytes bytes.
	ErrTooLong = errors.New("password is longer than 72 bytes")
)

// Hash returns a bcrypt hash of password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmpty
	}
	if len(password) > MaxBytes {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash never
// matches.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
