// Package session persists the signed-in user's token and profile next to
// the offline cache. Session keys are never part of the cache's known key
// set, so clearing cached data does not sign the user out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/api"
)

const (
	KeyToken = "@talkify_token"
	KeyUser  = "@talkify_user"
)

// ErrNoSession is returned by Load when no token has been saved.
var ErrNoSession = errors.New("no saved session")

type Session struct {
	Token string
	User  api.User
}

type Store struct {
	backend backends.Backend
	logger  *slog.Logger
}

func NewStore(backend backends.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("session token is required")
	}
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.backend.Put(ctx, KeyToken, []byte(sess.Token)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.backend.Put(ctx, KeyUser, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Load returns the saved session. A token without a readable profile still
// loads, with a zero User.
func (s *Store) Load(ctx context.Context) (Session, error) {
	token, ok, err := s.backend.Get(ctx, KeyToken)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || len(token) == 0 {
		return Session{}, ErrNoSession
	}
	sess := Session{Token: string(token)}

	raw, ok, err := s.backend.Get(ctx, KeyUser)
	if err != nil {
		s.logger.Warn("failed to read saved user", "error", err)
		return sess, nil
	}
	if ok {
		if err := json.Unmarshal(raw, &sess.User); err != nil {
			s.logger.Warn("failed to decode saved user", "error", err)
			sess.User = api.User{}
		}
	}
	return sess, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Expired reports whether token's exp claim is at or before now. The
// signature is not checked; only the server can do that. A token without an
// exp claim never expires.
func Expired(token string, now time.Time) (bool, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return !now.Before(claims.ExpiresAt.Time), nil
}
