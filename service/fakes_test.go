package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/herald/adapters/signer"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
)

var cowKey = crypto.Keccak256([]byte("cow"))

var cowAddress = common.HexToAddress("0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826")

const postTypedData = `{
  "__typename": "CreatePostEIP712TypedData",
  "types": {
    "__typename": "CreatePostEIP712TypedDataTypes",
    "PostWithSig": [
      {"name": "profileId", "type": "uint256", "__typename": "EIP712TypedDataField"},
      {"name": "contentURI", "type": "string", "__typename": "EIP712TypedDataField"},
      {"name": "collectModule", "type": "address", "__typename": "EIP712TypedDataField"},
      {"name": "collectModuleInitData", "type": "bytes", "__typename": "EIP712TypedDataField"},
      {"name": "referenceModule", "type": "address", "__typename": "EIP712TypedDataField"},
      {"name": "referenceModuleInitData", "type": "bytes", "__typename": "EIP712TypedDataField"},
      {"name": "nonce", "type": "uint256", "__typename": "EIP712TypedDataField"},
      {"name": "deadline", "type": "uint256", "__typename": "EIP712TypedDataField"}
    ]
  },
  "domain": {
    "name": "Lens Protocol Profiles",
    "chainId": 80001,
    "version": "1",
    "verifyingContract": "0x60Ae865ee4C725cd04353b5AAb364553f56ceF82",
    "__typename": "EIP712TypedDataDomain"
  },
  "value": {
    "nonce": 0,
    "deadline": 1700000000,
    "profileId": "0x0d",
    "contentURI": "ipfs://QmPost",
    "collectModule": "0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c",
    "collectModuleInitData": "0x0000000000000000000000000000000000000000000000000000000000000001",
    "referenceModule": "0x0000000000000000000000000000000000000000",
    "referenceModuleInitData": "0x",
    "__typename": "PostWithSigValue"
  }
}`

var postRequest = core.ActionRequest{
	Kind:          core.ActionPost,
	ProfileID:     "0x0d",
	ContentURI:    "ipfs://QmPost",
	CollectModule: core.CollectModule{Kind: core.CollectFree},
}

func newCowSigner() ports.Signer {
	key, err := crypto.ToECDSA(cowKey)
	if err != nil {
		panic(err)
	}
	return signer.NewKeySigner(key)
}

type fakeChallengeClient struct {
	challenge    string
	challengeErr error
	tokens       core.TokenPair
	exchangeErr  error

	// gate, when set, holds FetchChallenge until closed
	gate    chan struct{}
	started chan struct{}
	once    sync.Once

	challenges atomic.Int32
	exchanges  atomic.Int32
	signatures [][]byte
	mu         sync.Mutex
}

func newFakeChallengeClient() *fakeChallengeClient {
	return &fakeChallengeClient{
		challenge: "Sign in to Lens\nNonce: 9f1c",
		tokens:    core.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
	}
}

func (f *fakeChallengeClient) FetchChallenge(ctx context.Context, address common.Address) (string, error) {
	f.challenges.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.challenge, f.challengeErr
}

func (f *fakeChallengeClient) ExchangeSignature(ctx context.Context, address common.Address, signature []byte) (core.TokenPair, error) {
	f.exchanges.Add(1)
	f.mu.Lock()
	f.signatures = append(f.signatures, signature)
	f.mu.Unlock()
	if f.exchangeErr != nil {
		return core.TokenPair{}, f.exchangeErr
	}
	return f.tokens, nil
}

type fakeSource struct {
	mu      sync.Mutex
	errs    []error // returned in order before any success
	doc     string
	bearers []string
	actions []core.ActionRequest
}

func (f *fakeSource) FetchTypedData(ctx context.Context, action core.ActionRequest, bearer string) (*ports.TypedDataResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearers = append(f.bearers, bearer)
	f.actions = append(f.actions, action)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &ports.TypedDataResult{
		ID:        "4d1f6c2e-7b1a-4c55-a3b1-0b7f7e6b2f10",
		ExpiresAt: "2023-11-14T22:13:20.000Z",
		TypedData: []byte(f.doc),
	}, nil
}

type submission struct {
	kind     core.ActionKind
	value    typeddata.Value
	sig      core.Signature
	deadline string
}

type fakeSubmitter struct {
	err         error
	submissions []submission
}

func (f *fakeSubmitter) Submit(ctx context.Context, kind core.ActionKind, value typeddata.Value, sig core.Signature, deadline *big.Int) (core.TxHandle, error) {
	if f.err != nil {
		return core.TxHandle{}, f.err
	}
	f.submissions = append(f.submissions, submission{kind: kind, value: value, sig: sig, deadline: deadline.String()})
	return core.TxHandle{Hash: common.HexToHash("0xfeed"), Kind: kind, SubmittedAt: time.Now()}, nil
}

type fakeEvents struct {
	mu            sync.Mutex
	authenticated []common.Address
	ended         []common.Address
	submitted     []string
	err           error
}

func (f *fakeEvents) PublishSessionAuthenticated(ctx context.Context, address common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = append(f.authenticated, address)
	return f.err
}

func (f *fakeEvents) PublishSessionEnded(ctx context.Context, address common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, address)
	return f.err
}

func (f *fakeEvents) PublishActionSubmitted(ctx context.Context, requestID string, tx core.TxHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, requestID)
	return f.err
}

// failingStore fails every call with err once armed
type failingStore struct {
	ports.KeyValueStore
	err error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.KeyValueStore.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.err != nil {
		return s.err
	}
	return s.KeyValueStore.Set(ctx, key, value)
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	if s.err != nil {
		return s.err
	}
	return s.KeyValueStore.Delete(ctx, key)
}

var errDiskFull = errors.New("disk full")

// gatedStore holds Delete until release is closed
type gatedStore struct {
	ports.KeyValueStore
	deleting chan struct{}
	release  chan struct{}
}

func (s *gatedStore) Delete(ctx context.Context, key string) error {
	close(s.deleting)
	<-s.release
	return s.KeyValueStore.Delete(ctx, key)
}

// rejectingSigner is a wallet whose user declines every prompt
type rejectingSigner struct {
	address common.Address
}

func (s *rejectingSigner) Address() common.Address { return s.address }

func (s *rejectingSigner) SignMessage(ctx context.Context, text string) ([]byte, error) {
	return nil, core.NewError(core.StageAuth, core.ErrUserRejected, "declined", nil)
}

func (s *rejectingSigner) SignTypedData(ctx context.Context, domain, types, value typeddata.Value) ([]byte, error) {
	return nil, core.NewError(core.StageSign, core.ErrUserRejected, "declined", nil)
}
