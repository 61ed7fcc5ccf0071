// Package mailtext holds heuristics for reading raw e-mail text: who sent it,
// which language it is in, and where the signature starts.
package mailtext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	displayNamePattern = regexp.MustCompile(`([^\n<>]+?)\s*<[^@\s<>]+@[^>\s]+>`)
	fromHeaderPattern  = regexp.MustCompile(`(?i)From:\s*([^\n<>]+?)\s*<[^>\n]+>`)
	addressPattern     = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	automatedLocalPart = regexp.MustCompile(`(?i)^(no-?reply|noreply|mailer|bounce|postmaster)$`)
)

var signatureMarkers = []string{
	"Disclaimer:",
	"Unsubscribe",
	"Regards,",
	"Kind regards",
	"Best regards",
	"Sent from my",
	"This email and any files",
}

// Offsets and lengths below count characters, not bytes.
const (
	// A marker this close to the start is part of the message, not a signature.
	minSignatureOffset = 50
	longMessageLimit   = 3000
	longMessageKeep    = 1200
)

// ExtractSenderName finds a display name in text. It looks for a From: header
// first, then "Name <addr>", then falls back to the local part of
// the first bare address, or the capitalised first domain label when the local
// part is an automated mailbox. Empty when nothing is found.
func ExtractSenderName(text string) string {
	if text == "" {
		return ""
	}
	for _, p := range []*regexp.Regexp{fromHeaderPattern, displayNamePattern} {
		if m := p.FindStringSubmatch(text); m != nil {
			if name := cleanName(m[1]); name != "" {
				return name
			}
		}
	}
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	local, domain := m[1], m[2]
	if !automatedLocalPart.MatchString(local) {
		return local
	}
	label := strings.SplitN(domain, ".", 2)[0]
	return capitalize(label)
}

// FirstAddress returns the first e-mail address in text, or "".
func FirstAddress(text string) string {
	return addressPattern.FindString(text)
}

// DetectLanguageHint returns "Hindi" when text contains Devanagari, else "".
func DetectLanguageHint(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return "Hindi"
		}
	}
	return ""
}

// StripSignature cuts text at the earliest signature or disclaimer marker that
// is not near the start. Very long text without such a marker is truncated.
func StripSignature(text string) string {
	if text == "" {
		return ""
	}
	idx := -1
	for _, marker := range signatureMarkers {
		if i := strings.Index(text, marker); i != -1 && (idx == -1 || i < idx) {
			idx = i
		}
	}
	if idx != -1 && utf8.RuneCountInString(text[:idx]) > minSignatureOffset {
		return strings.TrimSpace(text[:idx])
	}
	if utf8.RuneCountInString(text) > longMessageLimit {
		return strings.TrimSpace(truncate(text, longMessageKeep))
	}
	return strings.TrimSpace(text)
}

func cleanName(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
