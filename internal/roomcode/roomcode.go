// Package roomcode generates and normalises the 4-character room join codes.
package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// alphabet excludes visually ambiguous characters: 0, O, I, 1, L.
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Length is the fixed length of a room code.
const Length = 4

// Generate returns a random, upper-case 4-character code drawn from the
// restricted alphabet. Callers are responsible for retrying on collision
// against the room registry.
func Generate() (string, error) {
	b := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}

	return string(b), nil
}

// Normalize upper-cases and trims a client-supplied code for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
