package dto

import (
	"time"

	"auto-replier-be/pkg/events"
)

// BusCommandRequest is any bus command posted over REST.
type BusCommandRequest struct {
	events.Command
}

type CommandAcceptedResponse struct {
	Type         string `json:"type"`
	GenerationID uint64 `json:"generation_id,omitempty"`
}

type GenerateDraftRequest struct {
	EmailBody  string `json:"emailBody" validate:"max=200000"`
	SenderName string `json:"senderName" validate:"max=200"`
	Style      string `json:"style" validate:"max=500"`
	Creativity string `json:"creativity" validate:"omitempty,oneof=precise balanced creative"`
}

type ModelStatusResponse struct {
	Available bool   `json:"available"`
	Candidate string `json:"candidate,omitempty"`
}

type SendMailRequest struct {
	To          string `json:"to" validate:"omitempty,max=320"`
	Subject     string `json:"subject" validate:"max=998"`
	Body        string `json:"body" validate:"required"`
	AccessToken string `json:"accessToken"`
}

type SendMailResponse struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

type ExtractionRequest struct {
	Body        string `json:"body" validate:"required"`
	SenderName  string `json:"senderName" validate:"max=200"`
	SenderEmail string `json:"senderEmail" validate:"omitempty,email"`
	URL         string `json:"url" validate:"omitempty,url"`
}

type ExtractionResponse struct {
	Body        string    `json:"body"`
	SenderName  string    `json:"senderName,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	URL         string    `json:"url,omitempty"`
	ExtractedAt time.Time `json:"extractedAt"`
}
