package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor applied to newly hashed passwords.
const HashCost = bcrypt.DefaultCost

// ErrMismatchedPassword indicates the plaintext does not match the digest.
var ErrMismatchedPassword = errors.New("password does not match")

// HashPassword generates a salted bcrypt digest of the password. The salt is
// randomized per call, so hashing the same password twice yields different
// digests.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword validates the plaintext against a bcrypt digest. Digests
// produced under an older cost still verify through their embedded
// parameters; anything that is not a bcrypt digest fails.
func CheckPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPassword
		}
		return err
	}
	return nil
}

// NeedsRehash reports whether the digest was produced with a lower cost than
// HashCost and should be regenerated on the next successful login.
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost < HashCost
}
