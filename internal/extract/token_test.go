package extract

import (
	"regexp"
	"testing"
)

func TestNewVerificationToken_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^CARKEEPER-VERIFIED-[0-9A-Z]{9}$`)

	for i := 0; i < 100; i++ {
		token := NewVerificationToken()
		if !pattern.MatchString(token) {
			t.Fatalf("token %q does not match %v", token, pattern)
		}
	}
}

func TestNewVerificationToken_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[NewVerificationToken()] = true
	}
	// 36^9 possible suffixes; 100 draws colliding would mean the generator
	// is broken, not unlucky.
	if len(seen) < 100 {
		t.Errorf("got %d distinct tokens out of 100", len(seen))
	}
}
