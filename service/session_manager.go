// Package service drives authentication, signing and submission of actions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionKey is the store key the session is persisted under
const SessionKey = "herald:session"

// SessionManager owns the current session and its persisted copy
type SessionManager struct {
	client    ports.ChallengeClient
	signer    ports.Signer
	store     ports.KeyValueStore
	eventPub  ports.EventPublisher
	inspector ports.TokenInspector
	logger    *zap.Logger

	group singleflight.Group
	// one challenge/exchange round-trip at a time across addresses
	slot chan struct{}

	// writeMu pairs every store mutation with its memory update
	writeMu sync.Mutex

	mu      sync.RWMutex
	current *core.Session
	loaded  bool
}

// NewSessionManager creates a new session manager. signer, eventPub and
// inspector may be nil.
func NewSessionManager(
	client ports.ChallengeClient,
	signer ports.Signer,
	store ports.KeyValueStore,
	eventPub ports.EventPublisher,
	inspector ports.TokenInspector,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		client:    client,
		signer:    signer,
		store:     store,
		eventPub:  eventPub,
		inspector: inspector,
		logger:    logger,
		slot:      make(chan struct{}, 1),
	}
}

// Authenticate logs address in through a signed challenge and replaces any
// prior session. Concurrent calls for the same address share one round-trip,
// which outlives any single caller; each caller stops waiting when its own
// ctx is done.
func (m *SessionManager) Authenticate(ctx context.Context, address common.Address) (core.Session, error) {
	key := strings.ToLower(address.Hex())
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		m.slot <- struct{}{}
		defer func() { <-m.slot }()

		return m.authenticate(flightCtx, address)
	})

	select {
	case <-ctx.Done():
		return core.Session{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.Session{}, res.Err
		}
		return res.Val.(core.Session), nil
	}
}

func (m *SessionManager) authenticate(ctx context.Context, address common.Address) (core.Session, error) {
	if m.signer == nil {
		return core.Session{}, core.NewError(core.StageAuth, core.ErrSignerUnavailable, "no signer bound", nil)
	}
	if m.signer.Address() != address {
		return core.Session{}, core.NewError(core.StageAuth, core.ErrSignerUnavailable,
			fmt.Sprintf("signer holds %s, not %s", m.signer.Address().Hex(), address.Hex()), nil)
	}

	text, err := m.client.FetchChallenge(ctx, address)
	if err != nil {
		return core.Session{}, core.Reclassify(core.StageAuth, err, core.ErrNoChallenge,
			core.ErrNoChallenge, core.ErrNetworkUnavailable)
	}
	if text == "" {
		return core.Session{}, core.NewError(core.StageAuth, core.ErrNoChallenge, "empty challenge", nil)
	}

	signature, err := m.signer.SignMessage(ctx, text)
	if err != nil {
		return core.Session{}, core.Reclassify(core.StageAuth, err, core.ErrSignerUnavailable,
			core.ErrUserRejected, core.ErrSignerUnavailable)
	}

	tokens, err := m.client.ExchangeSignature(ctx, address, signature)
	if err != nil {
		return core.Session{}, core.Reclassify(core.StageAuth, err, core.ErrAuthRejected,
			core.ErrAuthRejected, core.ErrNetworkUnavailable)
	}

	session := core.NewSession(address, tokens)
	data, err := core.MarshalSession(session)
	if err != nil {
		return core.Session{}, core.NewError(core.StageAuth, core.ErrAuthRejected, "unusable token pair", err)
	}

	// persist first so memory never holds a session the store does not
	m.writeMu.Lock()
	if err := m.store.Set(ctx, SessionKey, data); err != nil {
		m.writeMu.Unlock()
		m.logger.Error("Failed to persist session", zap.String("address", address.Hex()), zap.Error(err))
		return core.Session{}, core.NewError(core.StageAuth, core.ErrStoreFailure, "", err)
	}
	m.setCurrent(&session)
	m.writeMu.Unlock()

	m.logger.Info("Session authenticated", zap.String("address", address.Hex()))

	if m.eventPub != nil {
		if err := m.eventPub.PublishSessionAuthenticated(ctx, address); err != nil {
			m.logger.Warn("Failed to publish session event", zap.Error(err))
		}
	}
	return session, nil
}

// CurrentSession returns the session in memory, loading the persisted copy on
// first use. Token expiry is not checked.
func (m *SessionManager) CurrentSession(ctx context.Context) (core.Session, bool) {
	m.mu.RLock()
	if m.loaded {
		defer m.mu.RUnlock()
		if m.current == nil {
			return core.Session{}, false
		}
		return *m.current, true
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		if m.current == nil {
			return core.Session{}, false
		}
		return *m.current, true
	}

	data, err := m.store.Get(ctx, SessionKey)
	if errors.Is(err, ports.ErrNotFound) {
		m.loaded = true
		return core.Session{}, false
	}
	if err != nil {
		// not cached; the next call retries the store
		m.logger.Warn("Failed to load session", zap.Error(err))
		return core.Session{}, false
	}

	m.loaded = true
	session, err := core.UnmarshalSession(data)
	if err != nil {
		m.logger.Warn("Ignoring corrupt persisted session", zap.Error(err))
		return core.Session{}, false
	}
	m.current = &session
	return session, true
}

// Logout clears the session from memory and from the store. Logging out
// without a session is not an error.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	prev, hadSession := m.CurrentSession(ctx)
	if err := m.store.Delete(ctx, SessionKey); err != nil {
		m.writeMu.Unlock()
		m.logger.Error("Failed to delete persisted session", zap.Error(err))
		return core.NewError(core.StageAuth, core.ErrStoreFailure, "", err)
	}
	m.setCurrent(nil)
	m.writeMu.Unlock()

	if hadSession {
		m.logger.Info("Session ended", zap.String("address", prev.Address.Hex()))
		if m.eventPub != nil {
			if err := m.eventPub.PublishSessionEnded(ctx, prev.Address); err != nil {
				m.logger.Warn("Failed to publish logout event", zap.Error(err))
			}
		}
	}
	return nil
}

func (m *SessionManager) setCurrent(session *core.Session) {
	m.mu.Lock()
	m.current = session
	m.loaded = true
	m.mu.Unlock()
}

// Info describes the current session for display
func (m *SessionManager) Info(ctx context.Context) (core.SessionInfo, error) {
	session, ok := m.CurrentSession(ctx)
	if !ok {
		return core.SessionInfo{}, core.NewError(core.StageAuth, core.ErrNoSession, "", nil)
	}
	info := core.SessionInfo{Address: session.Address}
	if m.inspector != nil {
		if exp, ok := m.inspector.AccessExpiry(session.AccessToken); ok {
			info.AccessExpiry = &exp
		}
	}
	return info, nil
}

// Signer returns the bound signer, or nil
func (m *SessionManager) Signer() ports.Signer {
	return m.signer
}
