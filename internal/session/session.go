// Package session holds the bearer token for the current user and answers
// whether it is still usable. Re-authentication is not attempted here; an
// expired token surfaces as an authorization failure to the caller.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a concurrency-safe holder for the current bearer token.
type Session struct {
	mu     sync.RWMutex
	token  string
	userID string
}

func New(token string) *Session {
	s := &Session{}
	s.SetToken(token)
	return s
}

// SetToken replaces the current token, extracting the subject claim when the
// token parses as a JWT.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = ""
	if claims := parseClaims(token); claims != nil {
		if sub, _ := claims["sub"].(string); sub != "" {
			s.userID = sub
		}
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the subject of the current token, used to decide whether
// the edit affordance applies to a message.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Expired reports whether the token carries an exp claim in the past. The
// signature is not verified; this is a client-side courtesy check so an
// authorization failure can surface without a round trip.
func (s *Session) Expired() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return true
	}
	claims := parseClaims(token)
	if claims == nil {
		// Opaque tokens are passed through; the server decides.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func parseClaims(token string) jwt.MapClaims {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}
