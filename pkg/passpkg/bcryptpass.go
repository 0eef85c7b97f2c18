// Package passpkg hashes and checks staff passwords.
package passpkg

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt hashes without truncation, in bytes.
const MaxLength = 72

// ErrTooLong is returned for passwords bcrypt would silently truncate.
var ErrTooLong = errors.New("password is longer than 72 bytes")

// Hash returns the bcrypt hash of the password.
func Hash(password string) (string, error) {
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedPassword), nil
}

// Check returns nil if the password matches the hash.
func Check(password, hashedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
