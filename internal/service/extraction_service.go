package service

import (
	"strings"
	"time"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/mailtext"

	"github.com/patrickmn/go-cache"
)

const lastExtractionKey = "last_extraction"

// Extraction is the latest message body a content client read from a page.
type Extraction struct {
	Body        string    `json:"body"`
	SenderName  string    `json:"senderName,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	URL         string    `json:"url,omitempty"`
	ExtractedAt time.Time `json:"extractedAt"`
}

type IExtractionService interface {
	// Store records e as the last extraction, filling sender details from the
	// body when the client did not send them.
	Store(e Extraction) Extraction
	Last() (Extraction, bool)
	// InferRecipient picks the address to reply to from the last extraction.
	InferRecipient() string
}

type extractionService struct {
	store  *cache.Cache
	logger logger.ILogger
}

// NewExtractionService keeps extractions for ttl; zero keeps them until restart.
func NewExtractionService(ttl time.Duration, log logger.ILogger) IExtractionService {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &extractionService{store: cache.New(ttl, 10*time.Minute), logger: log}
}

func (s *extractionService) Store(e Extraction) Extraction {
	e.SenderName = strings.TrimSpace(e.SenderName)
	e.SenderEmail = strings.TrimSpace(e.SenderEmail)
	if e.SenderName == "" {
		e.SenderName = mailtext.ExtractSenderName(e.Body)
	}
	if e.SenderEmail == "" {
		e.SenderEmail = mailtext.FirstAddress(e.Body)
	}
	if e.ExtractedAt.IsZero() {
		e.ExtractedAt = time.Now()
	}

	s.store.SetDefault(lastExtractionKey, e)
	s.logger.Info("EXTRACTION", "Stored page extraction", map[string]interface{}{"length": len(e.Body), "sender_name": e.SenderName})
	return e
}

func (s *extractionService) Last() (Extraction, bool) {
	v, ok := s.store.Get(lastExtractionKey)
	if !ok {
		return Extraction{}, false
	}
	return v.(Extraction), true
}

func (s *extractionService) InferRecipient() string {
	last, ok := s.Last()
	if !ok {
		return ""
	}
	if last.SenderEmail != "" {
		return last.SenderEmail
	}
	return mailtext.FirstAddress(last.Body)
}
