package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	TicketKeyPrefixLength = 3
	TicketKeyMaxNumber    = 999
	fallbackKeyPrefix     = "TKT"
	keyPrefixMaxScan      = 10
)

// ErrTicketKeyExhausted is returned once a prefix has used every number.
var ErrTicketKeyExhausted = errors.New("maximum ticket number reached")

var upperCaser = cases.Upper(language.Und)

// KeyPrefix derives the three letter ticket key prefix from a project name.
// Letters are taken round-robin from each word, accents are folded and
// anything outside [A-Z0-9] is dropped. Short results are padded with X.
func KeyPrefix(projectName string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), projectName)
	if err != nil {
		folded = projectName
	}

	var words []string
	for _, field := range strings.Fields(folded) {
		word := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, field)
		if word != "" {
			words = append(words, upperCaser.String(word))
		}
	}
	if len(words) == 0 {
		return fallbackKeyPrefix
	}

	var b strings.Builder
	for i := 0; i < keyPrefixMaxScan && b.Len() < TicketKeyPrefixLength; i++ {
		for _, word := range words {
			if b.Len() >= TicketKeyPrefixLength {
				break
			}
			if i < len(word) {
				b.WriteByte(word[i])
			}
		}
	}

	prefix := b.String()
	for len(prefix) < TicketKeyPrefixLength {
		prefix += "X"
	}
	return prefix
}

// FormatTicketKey renders PREFIX-NNN.
func FormatTicketKey(prefix string, number int) (string, error) {
	if number < 1 || number > TicketKeyMaxNumber {
		return "", fmt.Errorf("%w for prefix %s", ErrTicketKeyExhausted, prefix)
	}
	return fmt.Sprintf("%s-%03d", prefix, number), nil
}
