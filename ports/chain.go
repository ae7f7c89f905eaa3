package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
)

// TxSender signs and broadcasts a contract call. It returns once the node
// accepted the transaction.
type TxSender interface {
	SendCall(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
}

// ActionSubmitter submits a signed action to the contract. value is the
// message that was signed.
type ActionSubmitter interface {
	Submit(ctx context.Context, kind core.ActionKind, value typeddata.Value, sig core.Signature, deadline *big.Int) (core.TxHandle, error)
}
