package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// codeUserRejected is the EIP-1193 code a wallet returns when the user
// declines a request
const codeUserRejected = 4001

// RemoteSigner delegates signing to a wallet over JSON-RPC
type RemoteSigner struct {
	client  *rpc.Client
	address common.Address
	logger  *zap.Logger
}

// DialRemoteSigner connects to the wallet endpoint at url
func DialRemoteSigner(ctx context.Context, url string, address common.Address, logger *zap.Logger) (*RemoteSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, core.NewError(core.StageAuth, core.ErrSignerUnavailable, "cannot reach wallet", err)
	}
	return NewRemoteSigner(client, address, logger), nil
}

// NewRemoteSigner wraps an existing RPC client
func NewRemoteSigner(client *rpc.Client, address common.Address, logger *zap.Logger) *RemoteSigner {
	return &RemoteSigner{client: client, address: address, logger: logger}
}

var _ ports.Signer = (*RemoteSigner)(nil)

func (s *RemoteSigner) Address() common.Address {
	return s.address
}

// SignMessage calls personal_sign
func (s *RemoteSigner) SignMessage(ctx context.Context, text string) ([]byte, error) {
	var sig hexutil.Bytes
	err := s.client.CallContext(ctx, &sig, "personal_sign", hexutil.Encode([]byte(text)), s.address)
	if err != nil {
		return nil, s.classify(core.StageAuth, "personal_sign", err)
	}
	return sig, nil
}

// SignTypedData calls eth_signTypedData_v4 with the assembled envelope
func (s *RemoteSigner) SignTypedData(ctx context.Context, domain, types, value typeddata.Value) ([]byte, error) {
	envelope, err := typeddata.Envelope(domain, types, value)
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "cannot build envelope", err)
	}
	doc, err := envelope.MarshalJSON()
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "cannot encode envelope", err)
	}

	var sig hexutil.Bytes
	if err := s.client.CallContext(ctx, &sig, "eth_signTypedData_v4", s.address, string(doc)); err != nil {
		return nil, s.classify(core.StageSign, "eth_signTypedData_v4", err)
	}
	return sig, nil
}

// Close releases the connection
func (s *RemoteSigner) Close() {
	s.client.Close()
}

func (s *RemoteSigner) classify(stage core.Stage, method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		s.logger.Info("Wallet request declined", zap.String("method", method))
		return core.NewError(stage, core.ErrUserRejected, "", err)
	}
	s.logger.Warn("Wallet request failed", zap.String("method", method), zap.Error(err))
	return core.NewError(stage, core.ErrSignerUnavailable, fmt.Sprintf("%s failed", method), err)
}
