package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// structuralKeys are the keys of a field descriptor and of the domain
var structuralKeys = []string{"name", "type", "version", "chainId", "verifyingContract", "salt"}

// SignablePayload is a payload with every bookkeeping field removed, ready
// to be signed
type SignablePayload struct {
	Domain      typeddata.Value
	Types       typeddata.Value
	Value       typeddata.Value
	PrimaryType string
}

// StructuredDataSigner signs payloads exactly as the contract will hash them
type StructuredDataSigner struct {
	logger *zap.Logger
}

// NewStructuredDataSigner creates a new signer
func NewStructuredDataSigner(logger *zap.Logger) *StructuredDataSigner {
	return &StructuredDataSigner{logger: logger}
}

// Prepare strips the bookkeeping fields from domain, types and value and
// checks that the result is still the payload the service issued. Field order
// and number literals are kept.
func (s *StructuredDataSigner) Prepare(payload *core.StructuredPayload) (*SignablePayload, error) {
	keys := payload.StripKeys()

	types := payload.Types.Strip(keys...)
	parsed, err := typeddata.ParseTypes(types)
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "invalid types", err)
	}

	// a declared member sharing a name with a bookkeeping field would be
	// stripped from the signed value and change the hash
	reserved := make(map[string]struct{})
	for _, name := range append(parsed.MemberNames(), structuralKeys...) {
		reserved[name] = struct{}{}
	}
	for _, key := range keys {
		if _, ok := reserved[key]; ok {
			return nil, core.NewError(core.StageSign, core.ErrPayloadStripFailure,
				fmt.Sprintf("bookkeeping field %q is a declared member", key), nil)
		}
	}

	out := &SignablePayload{
		Domain: payload.Domain.Strip(keys...),
		Types:  types,
		Value:  payload.Value.Strip(keys...),
	}
	for _, key := range keys {
		for name, v := range map[string]typeddata.Value{"domain": out.Domain, "types": out.Types, "value": out.Value} {
			if v.HasKey(key) {
				return nil, core.NewError(core.StageSign, core.ErrPayloadStripFailure,
					fmt.Sprintf("%q survived in %s", key, name), nil)
			}
		}
	}

	if out.PrimaryType, err = parsed.PrimaryType(); err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "", err)
	}
	if _, err := typeddata.DomainFields(out.Domain); err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "", err)
	}
	if err := parsed.CheckValue(out.PrimaryType, out.Value); err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "", err)
	}
	return out, nil
}

// Sign prepares payload and has signer sign it, returning the raw signature
func (s *StructuredDataSigner) Sign(ctx context.Context, payload *core.StructuredPayload, signer ports.Signer) ([]byte, error) {
	if signer == nil {
		return nil, core.NewError(core.StageSign, core.ErrSignerUnavailable, "no signer bound", nil)
	}
	prepared, err := s.Prepare(payload)
	if err != nil {
		s.logger.Error("Refusing to sign payload", zap.String("requestId", payload.RequestID()), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Signing typed data",
		zap.String("primaryType", prepared.PrimaryType),
		zap.String("requestId", payload.RequestID()),
		zap.String("stripped", strings.Join(payload.StripKeys(), ",")),
	)

	raw, err := signer.SignTypedData(ctx, prepared.Domain, prepared.Types, prepared.Value)
	if err != nil {
		return nil, core.Reclassify(core.StageSign, err, core.ErrSignerUnavailable,
			core.ErrUserRejected, core.ErrSignerUnavailable, core.ErrPayloadMismatch)
	}
	return raw, nil
}
