package domain

import (
	"encoding/json"
	"fmt"
)

// Durable storage keys. The snapshot record holds the persisted projection; the
// two raw token keys duplicate the tokens and are written by every operation
// that sets them.
const (
	StorageKeySnapshot     = "pet-connect-user"
	StorageKeyAccessToken  = "pet-connect-token"
	StorageKeyRefreshToken = "pet-connect-refresh-token"
)

const snapshotVersion = 0

// SessionState is the full in-memory authentication state of one browser.
//
// IsAuthenticated implies AccessToken is set. It does not imply User is set:
// between InitializeAuth and snapshot hydration the user may still be absent.
type SessionState struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
}

// PersistedSession is the serialisable projection of SessionState. IsLoading is
// never persisted.
type PersistedSession struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type snapshotRecord struct {
	State   PersistedSession `json:"state"`
	Version int              `json:"version"`
}

// Clone returns a copy that does not share the user record.
func (s SessionState) Clone() SessionState {
	s.User = s.User.Clone()
	return s
}

// ToPersisted projects the state onto its durable subset.
func (s SessionState) ToPersisted() PersistedSession {
	return PersistedSession{
		User:            s.User.Clone(),
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		IsAuthenticated: s.IsAuthenticated,
	}
}

// FromPersisted merges a persisted projection into s, keeping IsLoading.
// A projection that claims authentication without an access token is
// downgraded to unauthenticated.
func FromPersisted(s SessionState, p PersistedSession) SessionState {
	s.User = p.User.Clone()
	s.AccessToken = p.AccessToken
	s.RefreshToken = p.RefreshToken
	s.IsAuthenticated = p.IsAuthenticated && p.AccessToken != ""
	return s
}

// IsEmpty reports whether the projection carries no session at all.
func (p PersistedSession) IsEmpty() bool {
	return p.User == nil && p.AccessToken == "" && p.RefreshToken == "" && !p.IsAuthenticated
}

// Equal compares two projections field by field.
func (p PersistedSession) Equal(o PersistedSession) bool {
	if p.AccessToken != o.AccessToken || p.RefreshToken != o.RefreshToken || p.IsAuthenticated != o.IsAuthenticated {
		return false
	}
	if p.User == nil || o.User == nil {
		return p.User == nil && o.User == nil
	}
	a, _ := json.Marshal(p.User)
	b, _ := json.Marshal(o.User)
	return string(a) == string(b)
}

// EncodeSnapshot renders the durable record stored under StorageKeySnapshot.
func EncodeSnapshot(p PersistedSession) (string, error) {
	raw, err := json.Marshal(snapshotRecord{State: p, Version: snapshotVersion})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

// DecodeSnapshot parses a durable record written by EncodeSnapshot.
func DecodeSnapshot(raw string) (PersistedSession, error) {
	var rec snapshotRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return PersistedSession{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if rec.Version != snapshotVersion {
		return PersistedSession{}, fmt.Errorf("%w: version %d", ErrCorruptSnapshot, rec.Version)
	}
	return rec.State, nil
}
