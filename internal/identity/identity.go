// Package identity decides when two student records describe the same person.
//
// The durable key is the unique identifier ("IDU#<id>"). Legacy records
// without one fall back to normalised name and birth date
// ("FALLBACK#<nome>#<nascimento>"). Re-enrollment locks use a stricter key,
// see StudentKey.
package identity

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	uniquePrefix   = "IDU#"
	fallbackPrefix = "FALLBACK#"
)

// ErrIncompleteKey is returned by StudentKey when the tax id or birth date
// is missing.
var ErrIncompleteKey = errors.New("identity: tax id and birth date are required")

// Subject is anything carrying the fields identity is resolved from.
type Subject interface {
	UniqueID() string
	Name() string
	BirthDate() string
}

// ResolveKey returns the identity key of s.
func ResolveKey(s Subject) string {
	if id := strings.TrimSpace(s.UniqueID()); id != "" {
		return uniquePrefix + id
	}
	return FallbackKey(s)
}

// FallbackKey is the name and birth date key, regardless of identifier.
func FallbackKey(s Subject) string {
	return fallbackPrefix + NormalizeText(s.Name()) + "#" + NormalizeText(s.BirthDate())
}

// SameStudent reports whether a and b collide for duplicate registration:
// their keys are equal, or one of them has no identifier and the name and
// birth date match.
func SameStudent(a, b Subject) bool {
	if ResolveKey(a) == ResolveKey(b) {
		return true
	}
	if strings.TrimSpace(a.UniqueID()) != "" && strings.TrimSpace(b.UniqueID()) != "" {
		return false
	}
	return FallbackKey(a) == FallbackKey(b)
}

// NormalizeText lower-cases, strips diacritics and trims.
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

var birthDateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006"}

// StudentKey derives the lock key for one student: the payer's tax id
// (digits only) and the birth date, hashed so the raw values never land in a
// store path.
func StudentKey(cpf, birthDate string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cpf)
	date := canonicalDate(birthDate)
	if digits == "" || date == "" {
		return "", ErrIncompleteKey
	}
	sum := blake2b.Sum256([]byte(digits + "|" + date))
	return hex.EncodeToString(sum[:]), nil
}

func canonicalDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return NormalizeText(s)
}
