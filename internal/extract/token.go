package extract

import (
	"crypto/rand"
)

// tokenPrefix marks a record as pre-filled from a scanned receipt.
// The token is purely cosmetic — a UI badge, not a signature. The server
// stores it verbatim and never verifies it.
const tokenPrefix = "CARKEEPER-VERIFIED-"

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const tokenSuffixLen = 9

// NewVerificationToken generates a verification token: the fixed prefix
// followed by 9 random uppercase base-36 characters, e.g.
// "CARKEEPER-VERIFIED-X7K2M9QPA".
//
// crypto/rand is overkill for a cosmetic marker, but it costs nothing and
// avoids any seeding questions.
func NewVerificationToken() string {
	buf := make([]byte, tokenSuffixLen)
	// rand.Read never returns an error on supported platforms (it panics
	// internally if the kernel source is broken).
	rand.Read(buf)

	suffix := make([]byte, tokenSuffixLen)
	for i, b := range buf {
		suffix[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}

	return tokenPrefix + string(suffix)
}
