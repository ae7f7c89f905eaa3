package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
)

// ChallengeClient drives the challenge-response login against the
// authorization service
type ChallengeClient interface {
	FetchChallenge(ctx context.Context, address common.Address) (string, error)
	ExchangeSignature(ctx context.Context, address common.Address, signature []byte) (core.TokenPair, error)
}

// TypedDataResult is the raw payload issued for an action. TypedData holds the
// {types, domain, value} object exactly as the service sent it.
type TypedDataResult struct {
	ID        string
	ExpiresAt string
	TypedData []byte
}

// TypedDataSource issues payloads to sign for an action
type TypedDataSource interface {
	FetchTypedData(ctx context.Context, action core.ActionRequest, bearer string) (*TypedDataResult, error)
}

// MetadataValidator checks a publication metadata document
type MetadataValidator interface {
	ValidateMetadata(ctx context.Context, metadata core.PublicationMetadata, bearer string) (core.MetadataValidation, error)
}

// ProfileDirectory resolves profiles owned by an address
type ProfileDirectory interface {
	DefaultProfile(ctx context.Context, address common.Address) (*core.Profile, error)
}
