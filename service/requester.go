package service

import (
	"context"

	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// TypedDataRequester obtains the payload to sign for an action
type TypedDataRequester struct {
	source ports.TypedDataSource
	logger *zap.Logger
}

// NewTypedDataRequester creates a requester backed by source
func NewTypedDataRequester(source ports.TypedDataSource, logger *zap.Logger) *TypedDataRequester {
	return &TypedDataRequester{source: source, logger: logger}
}

// Request asks the service for the payload authorizing action. The
// authorization failures of the service are returned unchanged; retrying
// with a new session is up to the caller.
func (r *TypedDataRequester) Request(ctx context.Context, session core.Session, action core.ActionRequest) (*core.StructuredPayload, error) {
	if err := action.Validate(); err != nil {
		return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest, "", err)
	}
	if err := session.Validate(); err != nil {
		return nil, core.NewError(core.StageRequest, core.ErrNoSession, "", err)
	}

	result, err := r.source.FetchTypedData(ctx, action, session.AccessToken)
	if err != nil {
		return nil, core.Reclassify(core.StageRequest, err, core.ErrInvalidRequest,
			core.ErrUnauthorized, core.ErrInvalidRequest, core.ErrNetworkUnavailable)
	}

	doc, err := typeddata.Parse(result.TypedData)
	if err != nil {
		return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest, "malformed typed data", err)
	}
	payload := &core.StructuredPayload{
		Kind: action.Kind,
		Metadata: typeddata.Object(
			typeddata.F("id", typeddata.String(result.ID)),
			typeddata.F("expiresAt", typeddata.String(result.ExpiresAt)),
		),
	}
	for name, dst := range map[string]*typeddata.Value{
		"domain": &payload.Domain,
		"types":  &payload.Types,
		"value":  &payload.Value,
	} {
		v, ok := doc.Get(name)
		if !ok || v.Kind() != typeddata.KindObject {
			return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest, "typed data has no "+name+" object", nil)
		}
		*dst = v
	}

	r.logger.Debug("Typed data issued",
		zap.String("kind", string(action.Kind)),
		zap.String("requestId", result.ID),
		zap.String("expiresAt", result.ExpiresAt),
	)
	return payload, nil
}
