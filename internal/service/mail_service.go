package service

import (
	"context"
	"strings"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/gmail"
	"auto-replier-be/pkg/mailtext"
)

// GmailSender is the mail-send API.
type GmailSender interface {
	Send(ctx context.Context, accessToken string, env gmail.Envelope) (*gmail.SentMessage, error)
}

type SendRequest struct {
	To      string
	Subject string
	Body    string
	// AccessToken, when set, is used instead of the token service.
	AccessToken string
}

type IMailService interface {
	// Send delivers the draft. An empty To falls back to the sender of the
	// last extracted message.
	Send(ctx context.Context, req SendRequest) (*gmail.SentMessage, error)
	// ClearToken forgets the cached access token so the next send acquires a new one.
	ClearToken(ctx context.Context) error
}

type mailService struct {
	sender      GmailSender
	tokens      ITokenService
	extractions IExtractionService
	logger      logger.ILogger
}

func NewMailService(sender GmailSender, tokens ITokenService, extractions IExtractionService, log logger.ILogger) IMailService {
	return &mailService{sender: sender, tokens: tokens, extractions: extractions, logger: log}
}

func (s *mailService) Send(ctx context.Context, req SendRequest) (*gmail.SentMessage, error) {
	to := mailtext.FirstAddress(req.To)
	if to == "" {
		to = s.extractions.InferRecipient()
	}
	if to == "" {
		return nil, gmail.ErrNoRecipient
	}

	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		var err error
		token, err = s.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
	}

	sent, err := s.sender.Send(ctx, token, gmail.Envelope{To: to, Subject: req.Subject, Body: req.Body})
	if err != nil {
		s.logger.Warn("MAIL", "Gmail send failed", map[string]interface{}{"to": to, "error": err.Error()})
		return nil, err
	}

	s.logger.Info("MAIL", "Gmail send succeeded", map[string]interface{}{"to": to, "message_id": sent.ID})
	return sent, nil
}

func (s *mailService) ClearToken(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	had := s.tokens.Clear()
	s.logger.Info("MAIL", "Cleared cached token", map[string]interface{}{"had_token": had})
	return nil
}
