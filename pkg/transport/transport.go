// Package transport converts between the text form a blueprint is shared in
// and the raw container bytes.
//
// The text form is standard base64 (RFC 4648, with padding). Whitespace
// anywhere in the text is ignored so wrapped or copy-pasted strings decode.
package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrEmpty indicates the text held no base64 characters.
var ErrEmpty = errors.New("empty blueprint text")

// Decode strips whitespace from text and base64-decodes the rest.
func Decode(text string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if clean == "" {
		return nil, ErrEmpty
	}

	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// Encode returns the base64 text form of raw container bytes.
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
