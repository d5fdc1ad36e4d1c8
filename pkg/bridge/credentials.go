package bridge

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Pins HomeKit rejects as too easy to guess.
var disallowedPins = map[string]bool{
	"12345678": true,
	"87654321": true,
}

// GeneratePin returns a random setup pin formatted NNN-NN-NNN.
func GeneratePin() (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
		if err != nil {
			return "", fmt.Errorf("failed to generate pin: %w", err)
		}
		digits := fmt.Sprintf("%08d", n.Int64())
		if !validPinDigits(digits) {
			continue
		}
		return digits[:3] + "-" + digits[3:5] + "-" + digits[5:], nil
	}
}

func validPinDigits(digits string) bool {
	if disallowedPins[digits] {
		return false
	}
	return strings.Count(digits, digits[:1]) != len(digits)
}

// GenerateUsername returns a random bridge username in MAC address form,
// e.g. 0E:3C:A1:7F:22:9B.
func GenerateUsername() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate username: %w", err)
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, ":"), nil
}
