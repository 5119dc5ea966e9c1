// Package authsession tracks the signed-in identity and its stored profile.
//
// A Session is built per consumer (one per admin request, one per session
// endpoint call). It is never shared process-wide.
package authsession

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/users"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// Identity is the authenticated subject taken from the access token.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
}

// ProfileLookup loads the stored profile for a user id.
type ProfileLookup interface {
	Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

// ProfileLookupFunc adapts a function to ProfileLookup.
type ProfileLookupFunc func(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)

func (f ProfileLookupFunc) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return f(ctx, userID)
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	User    *Identity      `json:"user"`
	Profile *users.UserDTO `json:"profile"`
	Loading bool           `json:"loading"`
	IsAdmin bool           `json:"isAdmin"`
}

type Session struct {
	lookup ProfileLookup
	logg   *logger.Logger

	mu      sync.RWMutex
	user    *Identity
	profile *users.UserDTO
	loading bool
}

// New returns a session in the loading state. It stays loading until the first OnIdentityChange.
func New(lookup ProfileLookup, logg *logger.Logger) (*Session, error) {
	if lookup == nil {
		return nil, errors.New("profile lookup is required")
	}
	return &Session{lookup: lookup, logg: logg, loading: true}, nil
}

// OnIdentityChange records a new identity and performs exactly one profile lookup for it.
// A nil identity clears the profile. Lookup failures are logged and leave the profile nil.
func (s *Session) OnIdentityChange(ctx context.Context, identity *Identity) {
	var profile *users.UserDTO
	if identity != nil {
		found, err := s.lookup.Profile(ctx, identity.UserID)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "authsession.profile_lookup_failed")
			}
		} else {
			profile = found
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if identity != nil {
		id := *identity
		s.user = &id
	} else {
		s.user = nil
	}
	s.profile = profile
	s.loading = false
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Loading: s.loading, IsAdmin: s.profile.IsAdmin()}
	if s.user != nil {
		id := *s.user
		snap.User = &id
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// IsAdmin is true only when a profile was loaded and its stored role is admin.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.IsAdmin()
}
