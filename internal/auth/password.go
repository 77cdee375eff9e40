package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the only bcrypt cost used for stored hashes.
const PasswordCost = 12

// HashPassword hashes a plain password with bcrypt at PasswordCost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plain password with a stored bcrypt hash in constant time.
func CheckPassword(plain, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// dummyHash is compared against when no usable stored hash exists, so an
// unknown email costs the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("unused-login-placeholder")
	if err != nil {
		panic(err)
	}
	return hash
})
