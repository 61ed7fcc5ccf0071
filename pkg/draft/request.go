package draft

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultStyle is used when a request carries no style.
const DefaultStyle = "concise, polite, <=120 words"

// ErrModelUnavailable is reported when no backend answered the last probe.
var ErrModelUnavailable = errors.New("model not available")

// ErrNoEmailBody is reported when there is no message to reply to.
var ErrNoEmailBody = errors.New("no email to reply to")

// Request is one user-triggered draft generation. It is consumed once.
type Request struct {
	Body       string
	SenderName string
	Style      string
	Creativity Creativity
}

// Normalized fills defaults for style and creativity.
func (r Request) Normalized() Request {
	r.Style = strings.TrimSpace(r.Style)
	if r.Style == "" {
		r.Style = DefaultStyle
	}
	r.Creativity = ParseCreativity(string(r.Creativity))
	r.SenderName = strings.TrimSpace(r.SenderName)
	return r
}

// SystemInstruction is the fixed instruction sent ahead of the message body.
func (r Request) SystemInstruction() string {
	r = r.Normalized()
	p := ProfileFor(r.Creativity)
	return fmt.Sprintf(`You are a professional email assistant. Follow these rules:
- Reply in the same language as the original message.
- Start with a short greeting addressing the sender by their display name if provided (e.g. "Hi Ronak,").
- Keep the reply at most 120 words.
- Keep the reply %s.
- Write with %s creativity (temperature %.2f, top_p %.2f, repeat_penalty %.2f).
- End with a sign-off: "Best regards, [Your Name]".
- Output only the reply body. Do not add labels, notes, or commentary about being an AI.`,
		r.Style, r.Creativity, p.Temperature, p.TopP, p.RepeatPenalty)
}

// UserContent is the message body, prefixed by the sender name hint when known.
func (r Request) UserContent() string {
	r = r.Normalized()
	if r.SenderName == "" {
		return r.Body
	}
	return "SenderDisplayName: " + r.SenderName + "\n\n" + r.Body
}
