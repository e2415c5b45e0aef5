// Package normalize holds the pure canonicalization functions that turn
// heterogeneous raw field values into comparable identity keys. Every
// function is total: malformed input yields the empty string ("absent"),
// never an error. All functions are idempotent.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// textualNulls are strings that mean "no value" in source exports.
var textualNulls = map[string]bool{
	"":        true,
	"nan":     true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"null":    true,
	"unknown": true,
	"tbd":     true,
	"pending": true,
}

var caseFolder = cases.Fold()

// CleanString trims whitespace and treats textual nulls as absent.
func CleanString(raw string) string {
	s := strings.TrimSpace(raw)
	if textualNulls[strings.ToLower(s)] {
		return ""
	}
	return s
}

// Phone returns the digits-only form of a phone number, or "" if the
// value has fewer than 7 digits or is all zeros. A trailing decimal
// suffix (an artifact of spreadsheet exports, e.g. "5184340726.0") is
// cut before digit extraction so the stray zero does not survive.
func Phone(raw string) string {
	s := CleanString(raw)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	allZero := true
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if r != '0' {
				allZero = false
			}
		}
	}
	digits := b.String()
	if len(digits) < 7 || allZero {
		return ""
	}
	return digits
}

// Email returns the lower-cased trimmed email address, or "". When the
// raw field holds several comma-separated addresses the first plausible
// candidate wins. Addresses longer than 254 characters (RFC 5321 limit)
// are rejected as garbage data.
func Email(raw string) string {
	s := CleanString(raw)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	for _, candidate := range strings.Split(s, ",") {
		candidate = strings.TrimSpace(candidate)
		if strings.Contains(candidate, "@") && len(candidate) <= 254 {
			return candidate
		}
	}
	return ""
}

// ProfileURL canonicalizes an external profile URL: trim, strip the
// trailing slash and any query string, lower-case.
func ProfileURL(raw string) string {
	s := CleanString(raw)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}

// Name collapses a first/last name pair into the lower-cased "first
// last" identity key, or "" when both parts are blank. Unicode
// compatibility normalization plus case folding keeps keys stable
// across source encodings.
func Name(first, last string) string {
	f := CleanString(first)
	l := CleanString(last)
	full := strings.TrimSpace(f + " " + l)
	if full == "" {
		return ""
	}
	return caseFolder.String(norm.NFKC.String(full))
}

// SplitName splits a single full-name field on the first space:
// "John Smith" becomes ("John", "Smith"). Best effort for legacy
// exports that store one name column.
func SplitName(full string) (first, last string) {
	s := CleanString(full)
	if s == "" {
		return "", ""
	}
	parts := strings.SplitN(s, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
