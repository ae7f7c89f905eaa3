// Package contract submits signed publications to the LensHub contract.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// Submitter packs signed actions into LensHub calls and sends them
type Submitter struct {
	hub    common.Address
	abi    abi.ABI
	sender ports.TxSender
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.ActionSubmitter = (*Submitter)(nil)

// NewSubmitter creates a submitter for the hub contract at hub
func NewSubmitter(hub common.Address, sender ports.TxSender, logger *zap.Logger) (*Submitter, error) {
	parsed, err := abi.JSON(strings.NewReader(lensHubABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse LensHub ABI: %w", err)
	}
	return &Submitter{hub: hub, abi: parsed, sender: sender, logger: logger, now: time.Now}, nil
}

// Calldata encodes the contract call for a signed action. deadline must be
// the deadline that was signed.
func (s *Submitter) Calldata(kind core.ActionKind, value typeddata.Value, sig core.Signature, deadline *big.Int) ([]byte, error) {
	method, err := methodFor(kind)
	if err != nil {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "", err)
	}
	if deadline == nil {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "deadline is required", nil)
	}

	signed := fieldReader{value: value}
	if d := signed.uint256("deadline"); signed.err != nil {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "", signed.err)
	} else if d.Cmp(deadline) != 0 {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload,
			fmt.Sprintf("deadline %s does not match signed deadline %s", deadline, d), nil)
	}

	args, err := buildArgs(kind, value, EIP712Signature{
		V:        sig.V,
		R:        sig.R,
		S:        sig.S,
		Deadline: new(big.Int).Set(deadline),
	})
	if err != nil {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "", err)
	}

	data, err := s.abi.Pack(method, args)
	if err != nil {
		return nil, core.NewError(core.StageSubmit, core.ErrInvalidPayload, "cannot pack "+method, err)
	}
	return data, nil
}

// Submit sends the signed action and returns once the node accepted it. It
// does not wait for inclusion.
func (s *Submitter) Submit(ctx context.Context, kind core.ActionKind, value typeddata.Value, sig core.Signature, deadline *big.Int) (core.TxHandle, error) {
	data, err := s.Calldata(kind, value, sig, deadline)
	if err != nil {
		return core.TxHandle{}, err
	}

	hash, err := s.sender.SendCall(ctx, s.hub, data)
	if err != nil {
		classified := s.classify(err)
		s.logger.Warn("LensHub call failed",
			zap.String("kind", string(kind)),
			zap.String("hub", s.hub.Hex()),
			zap.Error(classified),
		)
		return core.TxHandle{}, classified
	}

	s.logger.Info("LensHub call submitted",
		zap.String("kind", string(kind)),
		zap.String("txHash", hash.Hex()),
	)
	return core.TxHandle{Hash: hash, Kind: kind, SubmittedAt: s.now()}, nil
}

// classify maps a send failure to ContractRejected when the node answered,
// to NetworkUnavailable when it could not be reached and to SubmitFailure
// when the transaction never left this process
func (s *Submitter) classify(err error) error {
	if errors.Is(err, core.ErrContractRejected) || errors.Is(err, core.ErrNetworkUnavailable) {
		return err
	}
	if reason, ok := s.RevertReason(err); ok {
		return core.ContractRejected(reason)
	}
	if isTransportFailure(err) {
		return core.NewError(core.StageSubmit, core.ErrNetworkUnavailable, "", err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return core.ContractRejected(rpcErr.Error())
	}
	return core.NewError(core.StageSubmit, core.ErrSubmitFailure, "", err)
}

func isTransportFailure(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError ||
			httpErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

// RevertReason decodes the revert carried by err: a LensHub custom error
// name, or the Error(string) message
func (s *Submitter) RevertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			return s.decodeRevert(data)
		}
	}
	if strings.Contains(err.Error(), "execution reverted") {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return rpcErr.Error(), true
		}
	}
	return "", false
}

func (s *Submitter) decodeRevert(data []byte) (string, bool) {
	if len(data) == 0 {
		return "execution reverted", true
	}
	if len(data) < 4 {
		return "", false
	}
	for name, e := range s.abi.Errors {
		if string(e.ID[:4]) == string(data[:4]) {
			return name, true
		}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	return "unknown revert " + hexutil.Encode(data[:4]), true
}

func revertData(v interface{}) ([]byte, bool) {
	switch d := v.(type) {
	case string:
		b, err := hexutil.Decode(d)
		return b, err == nil
	case []byte:
		return d, true
	case hexutil.Bytes:
		return d, true
	default:
		return nil, false
	}
}
