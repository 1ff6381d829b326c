package utils

import "golang.org/x/crypto/bcrypt"

// VerifyPassword reports whether the plain password matches the stored
// bcrypt hash. Used to re-check a shop owner's credentials before a
// payout moves money.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
