// Package chain signs and broadcasts EIP-1559 contract calls.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/herald/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// Polygon rejects tips under 30 gwei
	fallbackGasTipCap = big.NewInt(30_000_000_000)
	baseFeeMultiplier = big.NewInt(2)
)

// Backend is the subset of ethclient.Client the sender needs
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Sender signs calls with a local key and broadcasts them
type Sender struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	logger  *zap.Logger

	// serializes nonce assignment
	mu sync.Mutex
}

var _ ports.TxSender = (*Sender)(nil)

// NewSender creates a sender paying gas from key
func NewSender(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, logger *zap.Logger) (*Sender, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return &Sender{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		logger:  logger,
	}, nil
}

// From returns the address paying for transactions
func (s *Sender) From() common.Address {
	return s.from
}

// ChainID returns the chain the sender signs for
func (s *Sender) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SendCall estimates fees and gas, signs and broadcasts a call to to. It
// returns once the node accepted the transaction.
func (s *Sender) SendCall(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	gasTipCap, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		s.logger.Sugar().Warnw("SendCall: cannot get gasTipCap, using fallback", "error", err)
		gasTipCap = fallbackGasTipCap
	}

	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest block header: %w", err)
	}
	if header.BaseFee == nil {
		return common.Hash{}, fmt.Errorf("chain %s does not support EIP-1559", s.chainID)
	}

	// basefee * 2 + tip
	maxFeePerGas := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, baseFeeMultiplier), gasTipCap)

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      s.from,
		To:        &to,
		GasTipCap: gasTipCap,
		GasFeeCap: maxFeePerGas,
		Data:      data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = addGasBuffer(gasLimit)

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: maxFeePerGas,
		Gas:       gasLimit,
		To:        &to,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	s.logger.Info("SendCall: sending transaction",
		zap.String("to", to.Hex()),
		zap.String("maxPriorityFeeGwei", toGwei(gasTipCap)),
		zap.String("maxFeeGwei", toGwei(maxFeePerGas)),
		zap.String("baseFeeGwei", toGwei(header.BaseFee)),
		zap.Uint64("gasLimit", gasLimit),
		zap.Uint64("nonce", nonce),
	)

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Info("SendCall: transaction sent", zap.String("txHash", signed.Hash().Hex()))
	return signed.Hash(), nil
}

// addGasBuffer adds 20% to an estimate
func addGasBuffer(gas uint64) uint64 {
	return gas + gas/5
}

func toGwei(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -9).String()
}
