package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/layer-3/herald/internal/typeddata"
)

// TypenameField is the GraphQL bookkeeping marker attached to every object
// the authorization service returns
const TypenameField = "__typename"

// StructuredPayload is a domain-separated payload describing one action, as
// issued by the authorization service
type StructuredPayload struct {
	Kind   ActionKind
	Domain typeddata.Value
	Types  typeddata.Value
	Value  typeddata.Value

	// Metadata holds service bookkeeping fields (request id, expiry). None of
	// them is part of the signed commitment.
	Metadata typeddata.Value
}

// StripKeys returns the field names that must never reach the signer
func (p *StructuredPayload) StripKeys() []string {
	keys := []string{TypenameField}
	for _, k := range p.Metadata.Keys() {
		if k != TypenameField {
			keys = append(keys, k)
		}
	}
	return keys
}

// RequestID returns the correlation id the service attached to the payload
func (p *StructuredPayload) RequestID() string {
	for _, name := range []string{"id", "requestId"} {
		if v, ok := p.Metadata.Get(name); ok {
			if s, ok := v.Text(); ok {
				return s
			}
		}
	}
	return ""
}

// Deadline returns value.deadline as an integer
func (p *StructuredPayload) Deadline() (*big.Int, error) {
	v, ok := p.Value.Get("deadline")
	if !ok {
		return nil, fmt.Errorf("payload has no deadline")
	}
	text, ok := v.Text()
	if !ok {
		return nil, fmt.Errorf("deadline must be a number, got %s", v.Kind())
	}
	deadline, ok := math.ParseBig256(text)
	if !ok {
		return nil, fmt.Errorf("invalid deadline %q", text)
	}
	return deadline, nil
}
