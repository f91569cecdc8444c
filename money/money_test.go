package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		amount string
		fee    string
		total  string
	}{
		{"0", "0", "0"},
		{"100", "1.99", "101.99"},
		{"250.50", "4.98", "255.48"},
		{"0.01", "0", "0.01"},
		{"1000000", "19900", "1019900"},
	}

	for _, tt := range tests {
		amount := decimal.RequireFromString(tt.amount)
		fee := CalculateFee(amount)
		if !fee.Equal(decimal.RequireFromString(tt.fee)) {
			t.Errorf("CalculateFee(%s) = %s, want %s", tt.amount, fee, tt.fee)
		}
		total := Total(amount)
		if !total.Equal(decimal.RequireFromString(tt.total)) {
			t.Errorf("Total(%s) = %s, want %s", tt.amount, total, tt.total)
		}
		if !total.Equal(amount.Add(fee)) {
			t.Errorf("Total(%s) != amount + fee", tt.amount)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{90, "1:30"},
		{1800, "30:00"},
		{3661, "61:01"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatCountdown(tt.seconds); got != tt.want {
			t.Errorf("FormatCountdown(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(DefaultSecretLength)
	if err != nil {
		t.Fatalf("GenerateSecret err: %v", err)
	}
	if len(s) != DefaultSecretLength {
		t.Fatalf("expected %d chars, got %d", DefaultSecretLength, len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(secretCharset, r) {
			t.Fatalf("character %q outside charset", r)
		}
	}

	// non-positive length falls back to the default
	s, err = GenerateSecret(0)
	if err != nil {
		t.Fatalf("GenerateSecret err: %v", err)
	}
	if len(s) != DefaultSecretLength {
		t.Fatalf("expected default length %d, got %d", DefaultSecretLength, len(s))
	}

	a, _ := GenerateSecret(32)
	b, _ := GenerateSecret(32)
	if a == b {
		t.Fatalf("two generated secrets are identical")
	}
}

func TestGenerateSecretCoversCharset(t *testing.T) {
	// with 6400 draws the odds of any charset character never appearing
	// are negligible, so a miss indicates a skewed sampler
	seen := make(map[rune]bool)
	for i := 0; i < 200; i++ {
		s, err := GenerateSecret(32)
		if err != nil {
			t.Fatalf("GenerateSecret err: %v", err)
		}
		for _, r := range s {
			seen[r] = true
		}
	}
	if len(seen) != len(secretCharset) {
		t.Fatalf("only %d of %d charset characters ever drawn", len(seen), len(secretCharset))
	}
}
