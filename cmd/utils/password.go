package utils

import "golang.org/x/crypto/bcrypt"

// PasswordComparer reports whether a supplied password matches the secret
// stored on a record. Handlers receive one at construction so the storage
// format can change without touching call sites.
type PasswordComparer func(stored, supplied string) bool

// PlaintextComparer matches the stored secret byte for byte.
func PlaintextComparer(stored, supplied string) bool {
	return stored == supplied
}

// BcryptComparer treats the stored secret as a bcrypt hash.
func BcryptComparer(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}
