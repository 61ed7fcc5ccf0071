package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auto-replier-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

	accessTokenKey = "gmail_access_token"
	// expiryMargin drops a cached token this long before it really expires.
	expiryMargin = time.Minute
)

var ErrNoToken = errors.New("no Gmail credentials configured")

type TokenConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
}

type ITokenService interface {
	// Token returns a cached access token or acquires a new one.
	Token(ctx context.Context) (string, error)
	// Remember caches a token obtained elsewhere.
	Remember(token string, expiry time.Time)
	// Clear drops the cached token and reports whether one was cached.
	Clear() bool
}

type tokenService struct {
	conf         *oauth2.Config
	refreshToken string
	cache        *cache.Cache
	logger       logger.ILogger
}

func NewTokenService(cfg TokenConfig, log logger.ILogger) ITokenService {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	return &tokenService{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{GmailSendScope},
			Endpoint:     cfg.Endpoint,
		},
		refreshToken: cfg.RefreshToken,
		cache:        cache.New(cache.NoExpiration, 10*time.Minute),
		logger:       log,
	}
}

func (s *tokenService) Token(ctx context.Context) (string, error) {
	if v, ok := s.cache.Get(accessTokenKey); ok {
		return v.(string), nil
	}
	if s.refreshToken == "" || s.conf.ClientID == "" {
		return "", ErrNoToken
	}

	tok, err := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("acquire access token: %w", err)
	}

	s.Remember(tok.AccessToken, tok.Expiry)
	s.logger.Info("TOKEN", "Acquired Gmail access token", map[string]interface{}{"expiry": tok.Expiry})
	return tok.AccessToken, nil
}

func (s *tokenService) Remember(token string, expiry time.Time) {
	if token == "" {
		return
	}
	ttl := cache.NoExpiration
	if !expiry.IsZero() {
		ttl = time.Until(expiry) - expiryMargin
		if ttl <= 0 {
			return
		}
	}
	s.cache.Set(accessTokenKey, token, ttl)
}

func (s *tokenService) Clear() bool {
	_, ok := s.cache.Get(accessTokenKey)
	s.cache.Delete(accessTokenKey)
	return ok
}
