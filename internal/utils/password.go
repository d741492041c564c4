package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	pwUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	pwLower   = "abcdefghijklmnopqrstuvwxyz"
	pwDigits  = "0123456789"
	pwSymbols = "!@#$%^&*()_+-="
	pwAll     = pwUpper + pwLower + pwDigits + pwSymbols
)

// SuggestPassword generates a random password of the given length with at
// least one uppercase letter and one digit. Lengths below 8 are raised to 8.
// Randomness comes from crypto/rand.
func SuggestPassword(length int) string {
	if length < 8 {
		length = 8
	}

	out := make([]byte, 0, length)
	out = append(out, pwUpper[randIndex(len(pwUpper))])
	out = append(out, pwDigits[randIndex(len(pwDigits))])
	for len(out) < length {
		out = append(out, pwAll[randIndex(len(pwAll))])
	}

	// Shuffle so the guaranteed classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// randIndex returns a uniform random index in [0, n).
func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the platform RNG is broken.
		panic(err)
	}
	return int(v.Int64())
}
