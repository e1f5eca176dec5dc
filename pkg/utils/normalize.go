package utils

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeDigits folds compatibility forms (full-width letters and digits)
// with NFKC and rewrites Arabic-Indic and Eastern Arabic-Indic digits to
// ASCII, so phone numbers and codes typed on Arabic keyboards compare equal
// to their ASCII spelling.
func NormalizeDigits(text string) string {
	t := transform.Chain(norm.NFKC, runes.Map(asciiDigit))
	normalized, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return normalized
}

func asciiDigit(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	default:
		return r
	}
}

// NormalizePhone trims a phone number and strips the separators people
// commonly type between digit groups.
func NormalizePhone(phone string) string {
	phone = NormalizeDigits(strings.TrimSpace(phone))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		default:
			return r
		}
	}, phone)
}
