package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// adminPasswordHash returns the bcrypt hash the login compares against. ADMIN_PASSWORD may
// already hold a bcrypt hash so the plaintext never has to sit in the environment.
func adminPasswordHash(configured string) ([]byte, error) {
	if isBcryptHash(configured) {
		if _, err := bcrypt.Cost([]byte(configured)); err != nil {
			return nil, err
		}
		return []byte(configured), nil
	}
	return bcrypt.GenerateFromPassword([]byte(configured), bcrypt.DefaultCost)
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

func passwordMatches(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
