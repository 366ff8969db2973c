// Package modelkey derives the catalog keys under which published models are
// stored. Keys are human-legible (based on the uploaded file name) but made
// collision-resistant by a timestamp suffix. All functions are pure.
package modelkey

import (
	"regexp"
	"strings"
)

const (
	// maxLen caps the sanitized base name.
	maxLen = 50
	// fallback is used when sanitization strips everything away.
	fallback = "model"
	// suffixDigits is how many trailing digits of the creation timestamp are
	// appended to the sanitized base.
	suffixDigits = 6
)

var (
	glbSuffixRE = regexp.MustCompile(`(?i)\.glb$`)
	invalidRE   = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// Sanitize normalizes a raw name into a storage-safe key fragment: lowercase,
// trailing ".glb" stripped, every run of characters outside [a-z0-9_-]
// collapsed to a single underscore, leading/trailing underscores trimmed, and
// the result truncated to 50 characters. An empty result falls back to
// "model". Sanitize is idempotent.
func Sanitize(raw string) string {
	s := strings.ToLower(raw)
	s = glbSuffixRE.ReplaceAllString(s, "")
	s = invalidRE.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxLen {
		s = s[:maxLen]
		// Truncation can expose a trailing underscore again.
		s = strings.TrimRight(s, "_")
	}
	if s == "" {
		return fallback
	}
	return s
}

// StripExtension removes a trailing ".glb" (case-insensitive) from a file
// name without otherwise altering it.
func StripExtension(fileName string) string {
	return glbSuffixRE.ReplaceAllString(fileName, "")
}

// Derive builds the catalog key for an upload: the sanitized base name joined
// by an underscore to the last six digits of the creation timestamp in unix
// milliseconds. Two uploads of the same base name within the same six-digit
// window collide; that risk is accepted rather than corrected by retry.
func Derive(fileName string, createdAtMillis int64) string {
	return Sanitize(StripExtension(fileName)) + "_" + timestampSuffix(createdAtMillis)
}

// timestampSuffix returns the last suffixDigits decimal digits of ts,
// left-padded with zeros when ts is short.
func timestampSuffix(ts int64) string {
	if ts < 0 {
		ts = -ts
	}
	digits := make([]byte, suffixDigits)
	for i := suffixDigits - 1; i >= 0; i-- {
		digits[i] = byte('0' + ts%10)
		ts /= 10
	}
	return string(digits)
}
