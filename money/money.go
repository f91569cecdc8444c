package money

import (
	"crypto/rand"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultSecretLength is the length of generated placeholder credentials.
const DefaultSecretLength = 12

const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"

var feeRate = decimal.RequireFromString("0.0199")

// CalculateFee returns the processing fee (1.99%) on amount, rounded to two
// decimal places.
func CalculateFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(feeRate).Round(2)
}

// Total returns amount plus its processing fee.
func Total(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(CalculateFee(amount))
}

// FormatCountdown renders remaining whole seconds as "M:SS". Minutes are
// unbounded and carry no leading zero; seconds are zero-padded. Zero renders
// as "0:00"; marking it as expired is the caller's concern.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// GenerateSecret returns a random string of the given length drawn from an
// alphanumeric-plus-symbols charset. It is used as a placeholder credential
// for externally provisioned accounts and must never be logged or displayed.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}

	// rejection sampling keeps the draw uniform: bytes at or above the
	// largest multiple of the charset size are discarded
	const limit = 256 - 256%len(secretCharset)

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, secretCharset[int(b)%len(secretCharset)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
