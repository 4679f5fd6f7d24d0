package cartfacade

import (
	"strings"
	"sync"

	pkgAuth "github.com/angelmondragon/storefront-cart/pkg/auth"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// Session answers who the current shopper is. It is owned by the
// authentication layer; the facade only reads it.
type Session interface {
	IsAnonymous() bool
	SubjectID() string
}

type staticSession struct {
	subject   string
	anonymous bool
}

func (s staticSession) IsAnonymous() bool { return s.anonymous }
func (s staticSession) SubjectID() string { return s.subject }

// Anonymous is a guest session.
func Anonymous() Session {
	return staticSession{anonymous: true}
}

// Authenticated is a signed in session for subjectID.
func Authenticated(subjectID string) Session {
	return staticSession{subject: strings.TrimSpace(subjectID)}
}

// FromAccessToken verifies token and returns a session for its subject.
func FromAccessToken(cfg config.AuthConfig, token string) (Session, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	return Authenticated(claims.SubjectID()), nil
}

// SwitchableSession lets a long running process sign in and out.
type SwitchableSession struct {
	mu      sync.RWMutex
	current Session
}

func NewSwitchableSession(initial Session) *SwitchableSession {
	if initial == nil {
		initial = Anonymous()
	}
	return &SwitchableSession{current: initial}
}

func (s *SwitchableSession) Set(next Session) {
	if next == nil {
		next = Anonymous()
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *SwitchableSession) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SwitchableSession) IsAnonymous() bool { return s.Current().IsAnonymous() }
func (s *SwitchableSession) SubjectID() string { return s.Current().SubjectID() }
