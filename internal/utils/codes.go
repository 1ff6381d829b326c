package utils

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// RandomDigits returns a string of n random decimal digits from a
// cryptographic source. Used for booking codes (8 digits, so transfer
// descriptions carry "BK" + code) and check-in codes (6 digits).
func RandomDigits(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(digits)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = digits[idx.Int64()]
	}
	return string(out), nil
}
