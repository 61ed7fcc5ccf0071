package events

// Command types accepted on the bus.
const (
	CommandGenerateDraft      = "generateDraft"
	CommandCheckAvailability  = "checkAvailability"
	CommandSendViaGmail       = "sendViaGmail"
	CommandClearCachedToken   = "clearCachedToken"
	CommandPageEmailExtracted = "pageEmailExtracted"
	CommandRequestExtraction  = "requestExtraction"
)

// Command is the wire shape of a message sent by a client context.
type Command struct {
	Type string `json:"type"`

	// generateDraft
	EmailBody  string `json:"emailBody,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Style      string `json:"style,omitempty"`
	Creativity string `json:"creativity,omitempty"`

	// sendViaGmail
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
	// AccessToken lets a client that already holds a token skip acquisition.
	AccessToken string `json:"accessToken,omitempty"`

	// pageEmailExtracted
	SenderEmail string `json:"senderEmail,omitempty"`
	URL         string `json:"url,omitempty"`
}
