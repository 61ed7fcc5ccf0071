package draft

import (
	"regexp"
	"strings"
)

var (
	leadingLabel   = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:draft|response|reply)(?:\*\*)?\s*:(?:\*\*)?[ \t]*`)
	leadingSubject = regexp.MustCompile(`(?i)^\s*(?:\*\*)?subject(?:\*\*)?\s*:[^\n]*(?:\n|$)`)
	blankRun       = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

const fence = "```"

// Sanitize strips boilerplate a model tends to wrap around a reply: leading
// labels, a subject line, a fenced block around the whole text, and runs of
// blank lines. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	out := text
	for {
		next := sanitizePass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func sanitizePass(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)

	for {
		stripped := leadingLabel.ReplaceAllString(s, "")
		stripped = leadingSubject.ReplaceAllString(stripped, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}

	s = unwrapFence(s)
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// unwrapFence removes a single fenced block when it wraps the entire text.
func unwrapFence(s string) string {
	if !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) || strings.Count(s, fence) != 2 {
		return s
	}
	inner := strings.TrimSuffix(s, fence)
	nl := strings.IndexByte(inner, '\n')
	if nl < 0 {
		// ```text``` on one line
		return strings.TrimPrefix(inner, fence)
	}
	// drop the opening fence line along with any info string
	return inner[nl+1:]
}
