package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenPair is what the authorization service issues for a signed challenge
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session represents an authenticated user session
type Session struct {
	AccessToken  string         // Bearer credential for authenticated calls
	RefreshToken string         // Kept for the service, never used locally
	Address      common.Address // Address the challenge was signed for
}

// sessionRecord is the persisted form of a Session
type sessionRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Address      string `json:"address"`
}

// NewSession binds a token pair to an address
func NewSession(address common.Address, tokens TokenPair) Session {
	return Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Address:      address,
	}
}

// Validate checks that the session is structurally well-formed
func (s Session) Validate() error {
	if s.AccessToken == "" {
		return fmt.Errorf("access token is empty")
	}
	if s.RefreshToken == "" {
		return fmt.Errorf("refresh token is empty")
	}
	if s.Address == (common.Address{}) {
		return fmt.Errorf("session is not bound to an address")
	}
	return nil
}

// MarshalSession serializes a session for the session store
func MarshalSession(s Session) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(sessionRecord{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Address:      s.Address.Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	return string(data), nil
}

// UnmarshalSession restores a persisted session and validates it
func UnmarshalSession(data string) (Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !common.IsHexAddress(rec.Address) {
		return Session{}, fmt.Errorf("invalid session address %q", rec.Address)
	}
	s := Session{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Address:      common.HexToAddress(rec.Address),
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// SessionInfo is the displayable view of a session
type SessionInfo struct {
	Address      common.Address `json:"address"`
	AccessExpiry *time.Time     `json:"accessExpiry,omitempty"` // Unknown when the token is not a JWT
}
