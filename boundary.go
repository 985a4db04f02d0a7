package mpstream

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// DefaultBoundaryLength is the number of characters in a generated boundary.
const DefaultBoundaryLength = 16

const boundaryAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	ErrInvalidBoundaryLength = errors.New("mpstream: invalid boundary length")
	ErrInvalidBoundaryChar   = errors.New("mpstream: invalid boundary character")
)

// RandSource supplies the randomness used to pick boundary characters.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func randomBoundary(src RandSource) string {
	var buf [DefaultBoundaryLength]byte
	for i := range buf {
		buf[i] = boundaryAlphabet[src.IntN(len(boundaryAlphabet))]
	}
	return string(buf[:])
}

// bcharsnospace from RFC 2046 section 5.1.1, beyond letters and digits. A
// space is also allowed, except as the last character.
const boundaryPunct = "'()+_,-./:=?"

// tspecials force a parameter value to be quoted (RFC 2045 section 5.1).
const tspecials = `()<>@,;:\"/[]?= `

func validateBoundary(boundary string) error {
	if n := len(boundary); n == 0 || n > 69 {
		return ErrInvalidBoundaryLength
	}
	if strings.HasSuffix(boundary, " ") {
		return ErrInvalidBoundaryChar
	}
	for _, c := range boundary {
		if c == ' ' || strings.ContainsRune(boundaryAlphabet, c) || strings.ContainsRune(boundaryPunct, c) {
			continue
		}
		return ErrInvalidBoundaryChar
	}
	return nil
}
