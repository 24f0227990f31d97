// Package accesscode defines the 4-digit application form access code and the hash clients send in its place.
package accesscode

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Length is the number of digits in an access code.
const Length = 4

// ErrInvalidFormat is returned for codes that are not exactly Length ASCII digits.
var ErrInvalidFormat = errors.New("access code must be exactly 4 digits")

// Validate checks the code format.
func Validate(code string) error {
	if len(code) != Length {
		return ErrInvalidFormat
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrInvalidFormat
		}
	}
	return nil
}

// Hash binds the code to one form and lead. The server never sees the raw code, only this value.
func Hash(formID, leadID, code string) string {
	sum := sha256.Sum256([]byte(formID + ":" + leadID + ":" + code))
	return hex.EncodeToString(sum[:])
}

// IsHash reports whether s has the shape of a value produced by Hash.
func IsHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
