package krypto

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
)

const (
	// tokenLen is the number of characters in a token.
	tokenLen = 25
	// tokenAlphabet are the characters a token consists of.
	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random token that is sent via email.
//
// The only time a token should be provided in plaintext is as part of
// the email to the subscriber. Tokens are confidential and should never
// be exposed in logs.
type Token string

// GenerateToken creates a new random token of tokenLen alphanumeric
// characters drawn from crypto/rand.
func GenerateToken() (Token, error) {
	// Rejection sampling keeps the distribution over the alphabet uniform.
	// 4*62 = 248, so byte values 248 and up are resampled.
	const limit = byte(4 * len(tokenAlphabet))

	out := make([]byte, 0, tokenLen)
	buf := make([]byte, 1)
	for len(out) < tokenLen {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		if buf[0] >= limit {
			continue
		}

		out = append(out, tokenAlphabet[int(buf[0])%len(tokenAlphabet)])
	}

	return Token(out), nil
}

// ParseToken parses a token from a string.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen {
		return "", ErrInvalidToken
	}

	for _, c := range raw {
		if !strings.ContainsRune(tokenAlphabet, c) {
			return "", ErrInvalidToken
		}
	}

	return Token(raw), nil
}

// String returns the string representation of the token. As opposed to
// a Secret this is allowed, we need to embed the token in emails.
func (t Token) String() string {
	return string(t)
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
