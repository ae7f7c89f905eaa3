package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"syscall"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	hubAddress    = common.HexToAddress("0x60Ae865ee4C725cd04353b5AAb364553f56ceF82")
	collectModule = "0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c"
)

func postValue() typeddata.Value {
	return typeddata.Object(
		typeddata.F("nonce", typeddata.Number("0")),
		typeddata.F("deadline", typeddata.Number("1700000000")),
		typeddata.F("profileId", typeddata.String("0x0d")),
		typeddata.F("contentURI", typeddata.String("ipfs://QmPost")),
		typeddata.F("collectModule", typeddata.String(collectModule)),
		typeddata.F("collectModuleInitData", typeddata.String("0x0000000000000000000000000000000000000000000000000000000000000001")),
		typeddata.F("referenceModule", typeddata.String("0x0000000000000000000000000000000000000000")),
		typeddata.F("referenceModuleInitData", typeddata.String("0x")),
	)
}

func mirrorValue() typeddata.Value {
	return typeddata.Object(
		typeddata.F("nonce", typeddata.Number("3")),
		typeddata.F("deadline", typeddata.Number("1700000000")),
		typeddata.F("profileId", typeddata.String("0x0d")),
		typeddata.F("profileIdPointed", typeddata.String("0x01")),
		typeddata.F("pubIdPointed", typeddata.String("0x02")),
		typeddata.F("referenceModuleData", typeddata.String("0x")),
		typeddata.F("referenceModule", typeddata.String("0x0000000000000000000000000000000000000000")),
		typeddata.F("referenceModuleInitData", typeddata.String("0x")),
	)
}

func testSignature() core.Signature {
	sig := core.Signature{V: 28}
	sig.R[31] = 0x01
	sig.S[0] = 0x7f
	return sig
}

type fakeSender struct {
	to   common.Address
	data []byte
	hash common.Hash
	err  error
}

func (f *fakeSender) SendCall(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	f.to = to
	f.data = data
	return f.hash, f.err
}

type rpcRevert struct {
	message string
	data    interface{}
}

func (e rpcRevert) Error() string          { return e.message }
func (e rpcRevert) ErrorCode() int         { return 3 }
func (e rpcRevert) ErrorData() interface{} { return e.data }

func newSubmitter(t *testing.T, sender *fakeSender) *Submitter {
	t.Helper()
	s, err := NewSubmitter(hubAddress, sender, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestSubmit_PostFieldMapping(t *testing.T) {
	sender := &fakeSender{hash: common.HexToHash("0xabc")}
	s := newSubmitter(t, sender)

	handle, err := s.Submit(context.Background(), core.ActionPost, postValue(), testSignature(), big.NewInt(1700000000))
	require.NoError(t, err)
	assert.Equal(t, sender.hash, handle.Hash)
	assert.Equal(t, core.ActionPost, handle.Kind)
	assert.False(t, handle.SubmittedAt.IsZero())
	assert.Equal(t, hubAddress, sender.to)

	method, err := s.abi.MethodById(sender.data[:4])
	require.NoError(t, err)
	assert.Equal(t, "postWithSig", method.Name)

	unpacked, err := method.Inputs.Unpack(sender.data[4:])
	require.NoError(t, err)
	got := *abi.ConvertType(unpacked[0], new(PostWithSigData)).(*PostWithSigData)

	wantInit := make([]byte, 32)
	wantInit[31] = 1
	assert.Equal(t, int64(13), got.ProfileId.Int64())
	assert.Equal(t, "ipfs://QmPost", got.ContentURI)
	assert.Equal(t, common.HexToAddress(collectModule), got.CollectModule)
	assert.Equal(t, wantInit, got.CollectModuleInitData)
	assert.Equal(t, common.Address{}, got.ReferenceModule)
	assert.Empty(t, got.ReferenceModuleInitData)
	assert.Equal(t, uint8(28), got.Sig.V)
	assert.Equal(t, testSignature().R, got.Sig.R)
	assert.Equal(t, testSignature().S, got.Sig.S)
	assert.Equal(t, int64(1700000000), got.Sig.Deadline.Int64())
}

func TestSubmit_MirrorFieldMapping(t *testing.T) {
	sender := &fakeSender{}
	s := newSubmitter(t, sender)

	_, err := s.Submit(context.Background(), core.ActionMirror, mirrorValue(), testSignature(), big.NewInt(1700000000))
	require.NoError(t, err)

	method, err := s.abi.MethodById(sender.data[:4])
	require.NoError(t, err)
	assert.Equal(t, "mirrorWithSig", method.Name)

	unpacked, err := method.Inputs.Unpack(sender.data[4:])
	require.NoError(t, err)
	got := *abi.ConvertType(unpacked[0], new(MirrorWithSigData)).(*MirrorWithSigData)
	assert.Equal(t, int64(1), got.ProfileIdPointed.Int64())
	assert.Equal(t, int64(2), got.PubIdPointed.Int64())
}

func TestCalldata_InvalidPayload(t *testing.T) {
	s := newSubmitter(t, &fakeSender{})
	deadline := big.NewInt(1700000000)

	tests := []struct {
		name     string
		kind     core.ActionKind
		value    typeddata.Value
		deadline *big.Int
	}{
		{name: "deadline mismatch", kind: core.ActionPost, value: postValue(), deadline: big.NewInt(1700000001)},
		{name: "no deadline", kind: core.ActionPost, value: postValue(), deadline: nil},
		{name: "unknown kind", kind: "like", value: postValue(), deadline: deadline},
		{name: "post value for comment", kind: core.ActionComment, value: postValue(), deadline: deadline},
		{
			name: "bad address", kind: core.ActionPost, deadline: deadline,
			value: typeddata.Object(append(postValue().Fields()[:4], typeddata.F("collectModule", typeddata.String("0x1234")))...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Calldata(tt.kind, tt.value, testSignature(), tt.deadline)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidPayload), "got %v", err)
		})
	}
}

func TestSubmit_ContractRejects(t *testing.T) {
	selector := hexutil.Encode(crypto.Keccak256([]byte("SignatureInvalid()"))[:4])
	sender := &fakeSender{err: rpcRevert{message: "execution reverted", data: selector}}
	s := newSubmitter(t, sender)

	_, err := s.Submit(context.Background(), core.ActionPost, postValue(), testSignature(), big.NewInt(1700000000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrContractRejected))
	assert.False(t, core.IsRetryable(err))

	reason, ok := core.RevertReason(err)
	require.True(t, ok)
	assert.Equal(t, "SignatureInvalid", reason)
}

func TestSubmit_RevertWithReasonString(t *testing.T) {
	// Error(string) with "expired"
	data := "0x08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000007" +
		"6578706972656400000000000000000000000000000000000000000000000000"
	s := newSubmitter(t, &fakeSender{err: rpcRevert{message: "execution reverted: expired", data: data}})

	_, err := s.Submit(context.Background(), core.ActionPost, postValue(), testSignature(), big.NewInt(1700000000))
	reason, ok := core.RevertReason(err)
	require.True(t, ok)
	assert.Equal(t, "expired", reason)
}

func TestSubmit_NetworkFailure(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	tests := []struct {
		name string
		err  error
	}{
		{name: "connection refused", err: fmt.Errorf("failed to get nonce: %w", refused)},
		{name: "node overloaded", err: fmt.Errorf("failed to send transaction: %w", rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"})},
		{name: "rate limited", err: rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}},
		{name: "deadline", err: fmt.Errorf("failed to estimate gas: %w", context.DeadlineExceeded)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSubmitter(t, &fakeSender{err: tt.err})

			_, err := s.Submit(context.Background(), core.ActionPost, postValue(), testSignature(), big.NewInt(1700000000))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrNetworkUnavailable), "got %v", err)
			assert.True(t, core.IsRetryable(err))
		})
	}
}

func TestSubmit_LocalFailureIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "legacy chain", err: errors.New("chain 137 does not support EIP-1559")},
		{name: "signing", err: fmt.Errorf("failed to sign transaction: %w", errors.New("invalid chain id for signer"))},
		{name: "rpc endpoint forbidden", err: rpc.HTTPError{StatusCode: 403, Status: "403 Forbidden"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSubmitter(t, &fakeSender{err: tt.err})

			_, err := s.Submit(context.Background(), core.ActionPost, postValue(), testSignature(), big.NewInt(1700000000))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrSubmitFailure), "got %v", err)
			assert.False(t, core.IsRetryable(err))
			stage, _ := core.StageOf(err)
			assert.Equal(t, core.StageSubmit, stage)
		})
	}
}
