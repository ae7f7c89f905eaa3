package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/internal/typeddata"
)

// Signer is a user-controlled key. Implementations return a raw 65-byte
// r || s || v signature and classify failures with core.ErrUserRejected or
// core.ErrSignerUnavailable.
type Signer interface {
	Address() common.Address

	// SignMessage signs text as an EIP-191 personal message
	SignMessage(ctx context.Context, text string) ([]byte, error)

	// SignTypedData signs an EIP-712 payload exactly as given
	SignTypedData(ctx context.Context, domain, types, value typeddata.Value) ([]byte, error)
}
