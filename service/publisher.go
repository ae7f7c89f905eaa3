package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// Publisher runs the whole pipeline for one action: request, sign, split
// and submit
type Publisher struct {
	sessions  *SessionManager
	requester *TypedDataRequester
	signer    *StructuredDataSigner
	submitter ports.ActionSubmitter
	eventPub  ports.EventPublisher
	logger    *zap.Logger

	// ReauthOnUnauthorized re-authenticates once and retries the request
	// once when the service rejects the access token
	ReauthOnUnauthorized bool
}

// NewPublisher creates a new publisher. eventPub may be nil.
func NewPublisher(
	sessions *SessionManager,
	requester *TypedDataRequester,
	signer *StructuredDataSigner,
	submitter ports.ActionSubmitter,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) *Publisher {
	return &Publisher{
		sessions:  sessions,
		requester: requester,
		signer:    signer,
		submitter: submitter,
		eventPub:  eventPub,
		logger:    logger,
	}
}

// EnsureSession returns the current session, authenticating the signer's
// address when there is none or it belongs to another address
func (p *Publisher) EnsureSession(ctx context.Context) (core.Session, error) {
	wallet := p.sessions.Signer()
	if wallet == nil {
		return core.Session{}, core.NewError(core.StageAuth, core.ErrSignerUnavailable, "no signer bound", nil)
	}
	if session, ok := p.sessions.CurrentSession(ctx); ok && session.Address == wallet.Address() {
		return session, nil
	}
	return p.sessions.Authenticate(ctx, wallet.Address())
}

// Publish authorizes and submits action with the current session
func (p *Publisher) Publish(ctx context.Context, action core.ActionRequest) (core.TxHandle, error) {
	session, ok := p.sessions.CurrentSession(ctx)
	if !ok {
		return core.TxHandle{}, core.NewError(core.StageAuth, core.ErrNoSession, "", nil)
	}
	wallet := p.sessions.Signer()
	if wallet == nil {
		return core.TxHandle{}, core.NewError(core.StageSign, core.ErrSignerUnavailable, "no signer bound", nil)
	}
	if wallet.Address() != session.Address {
		return core.TxHandle{}, core.NewError(core.StageSign, core.ErrSignerUnavailable,
			fmt.Sprintf("session belongs to %s, signer holds %s", session.Address.Hex(), wallet.Address().Hex()), nil)
	}

	payload, err := p.requester.Request(ctx, session, action)
	if err != nil && p.ReauthOnUnauthorized && errors.Is(err, core.ErrUnauthorized) {
		p.logger.Info("Access token rejected, re-authenticating", zap.String("address", session.Address.Hex()))
		if session, err = p.sessions.Authenticate(ctx, session.Address); err != nil {
			return core.TxHandle{}, err
		}
		payload, err = p.requester.Request(ctx, session, action)
	}
	if err != nil {
		return core.TxHandle{}, err
	}

	raw, err := p.signer.Sign(ctx, payload, wallet)
	if err != nil {
		return core.TxHandle{}, err
	}
	sig, err := core.SplitSignature(raw)
	if err != nil {
		return core.TxHandle{}, err
	}

	deadline, err := payload.Deadline()
	if err != nil {
		return core.TxHandle{}, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "", err)
	}
	tx, err := p.submitter.Submit(ctx, action.Kind, payload.Value.Strip(payload.StripKeys()...), sig, deadline)
	if err != nil {
		return core.TxHandle{}, err
	}

	p.logger.Info("Action submitted",
		zap.String("kind", string(action.Kind)),
		zap.String("requestId", payload.RequestID()),
		zap.String("txHash", tx.Hash.Hex()),
	)
	if p.eventPub != nil {
		if err := p.eventPub.PublishActionSubmitted(ctx, payload.RequestID(), tx); err != nil {
			p.logger.Warn("Failed to publish action event", zap.Error(err))
		}
	}
	return tx, nil
}
