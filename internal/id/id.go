// Package id generates short URL-safe identifiers for steps and templates.
package id

import (
	"crypto/rand"
	"regexp"
)

// alphabet has 64 symbols, so one random byte masked to 6 bits maps to
// exactly one symbol without modulo bias.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// Length is the fixed length of generated identifiers.
const Length = 10

var pattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10}$`)

// New returns a fresh 10-character identifier drawn from [A-Za-z0-9_-].
func New() string {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("id: read random: " + err.Error())
	}
	out := make([]byte, Length)
	for i, b := range buf {
		out[i] = alphabet[b&63]
	}
	return string(out)
}

// Valid reports whether s is a well-formed identifier.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
