package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/herald/adapters/store"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedExpiry time.Time

func (e fixedExpiry) AccessExpiry(token string) (time.Time, bool) {
	return time.Time(e), token == "access-1"
}

func newTestSessionManager(t *testing.T, client *fakeChallengeClient, kv *failingStore, events *fakeEvents) *SessionManager {
	t.Helper()
	if kv == nil {
		kv = &failingStore{KeyValueStore: store.NewMemoryStore()}
	}
	var pub ports.EventPublisher
	if events != nil {
		pub = events
	}
	return NewSessionManager(client, newCowSigner(), kv, pub, nil, zaptest.NewLogger(t))
}

func TestAuthenticate_Success(t *testing.T) {
	client := newFakeChallengeClient()
	kv := &failingStore{KeyValueStore: store.NewMemoryStore()}
	events := &fakeEvents{}
	m := newTestSessionManager(t, client, kv, events)

	session, err := m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.Equal(t, cowAddress, session.Address)

	// the exchanged signature is a personal signature over the challenge
	require.Len(t, client.signatures, 1)
	sig := append([]byte{}, client.signatures[0]...)
	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(client.challenge)), sig)
	require.NoError(t, err)
	assert.Equal(t, cowAddress, crypto.PubkeyToAddress(*pub))

	current, ok := m.CurrentSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, session, current)

	persisted, err := kv.Get(context.Background(), SessionKey)
	require.NoError(t, err)
	restored, err := core.UnmarshalSession(persisted)
	require.NoError(t, err)
	assert.Equal(t, session, restored)

	assert.Equal(t, []common.Address{cowAddress}, events.authenticated)
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *fakeChallengeClient)
		kind  error
		exch  int32
	}{
		{
			name:  "no challenge",
			setup: func(c *fakeChallengeClient) { c.challenge = "" },
			kind:  core.ErrNoChallenge,
		},
		{
			name:  "challenge unclassified",
			setup: func(c *fakeChallengeClient) { c.challengeErr = errors.New("unexpected reply") },
			kind:  core.ErrNoChallenge,
		},
		{
			name: "challenge network",
			setup: func(c *fakeChallengeClient) {
				c.challengeErr = core.NewError(core.StageAuth, core.ErrNetworkUnavailable, "", errors.New("dial tcp"))
			},
			kind: core.ErrNetworkUnavailable,
		},
		{
			name: "exchange rejected",
			setup: func(c *fakeChallengeClient) {
				c.exchangeErr = core.NewError(core.StageAuth, core.ErrAuthRejected, "signature does not match", nil)
			},
			kind: core.ErrAuthRejected,
			exch: 1,
		},
		{
			name:  "exchange unclassified",
			setup: func(c *fakeChallengeClient) { c.exchangeErr = errors.New("boom") },
			kind:  core.ErrAuthRejected,
			exch:  1,
		},
		{
			name:  "incomplete token pair",
			setup: func(c *fakeChallengeClient) { c.tokens.RefreshToken = "" },
			kind:  core.ErrAuthRejected,
			exch:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeChallengeClient()
			tt.setup(client)
			events := &fakeEvents{}
			m := newTestSessionManager(t, client, nil, events)

			_, err := m.Authenticate(context.Background(), cowAddress)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), err.Error())
			stage, _ := core.StageOf(err)
			assert.Equal(t, core.StageAuth, stage)
			assert.Equal(t, tt.exch, client.exchanges.Load())

			_, ok := m.CurrentSession(context.Background())
			assert.False(t, ok)
			assert.Empty(t, events.authenticated)
		})
	}
}

func TestAuthenticate_UserRejected(t *testing.T) {
	client := newFakeChallengeClient()
	m := NewSessionManager(client, &rejectingSigner{address: cowAddress}, store.NewMemoryStore(), nil, nil, zaptest.NewLogger(t))

	_, err := m.Authenticate(context.Background(), cowAddress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUserRejected))
	assert.Zero(t, client.exchanges.Load())
}

func TestAuthenticate_SignerMismatch(t *testing.T) {
	client := newFakeChallengeClient()
	m := newTestSessionManager(t, client, nil, nil)

	_, err := m.Authenticate(context.Background(), common.HexToAddress("0x0000000000000000000000000000000000000abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSignerUnavailable))
	assert.Zero(t, client.challenges.Load())
}

func TestAuthenticate_StoreFailureKeepsNoSession(t *testing.T) {
	client := newFakeChallengeClient()
	kv := &failingStore{KeyValueStore: store.NewMemoryStore(), err: errDiskFull}
	events := &fakeEvents{}
	m := newTestSessionManager(t, client, kv, events)

	_, err := m.Authenticate(context.Background(), cowAddress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStoreFailure))
	assert.True(t, errors.Is(err, errDiskFull))

	kv.err = nil
	_, ok := m.CurrentSession(context.Background())
	assert.False(t, ok)
	assert.Empty(t, events.authenticated)
}

func TestAuthenticate_ReplacesPriorSession(t *testing.T) {
	client := newFakeChallengeClient()
	m := newTestSessionManager(t, client, nil, nil)

	_, err := m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	client.tokens = core.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}
	_, err = m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	current, ok := m.CurrentSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "access-2", current.AccessToken)
}

func TestAuthenticate_ConcurrentCallsShareOneRoundTrip(t *testing.T) {
	client := newFakeChallengeClient()
	client.gate = make(chan struct{})
	client.started = make(chan struct{})
	m := newTestSessionManager(t, client, nil, nil)

	const callers = 5
	results := make([]core.Session, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = m.Authenticate(context.Background(), cowAddress)
	}()
	<-client.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Authenticate(context.Background(), cowAddress)
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), client.challenges.Load())
	assert.Equal(t, int32(1), client.exchanges.Load())
}

func TestAuthenticate_CallerContextCancelled(t *testing.T) {
	client := newFakeChallengeClient()
	client.gate = make(chan struct{})
	client.started = make(chan struct{})
	m := newTestSessionManager(t, client, nil, nil)

	go func() {
		_, _ = m.Authenticate(context.Background(), cowAddress)
	}()
	<-client.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Authenticate(ctx, cowAddress)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(client.gate)
	require.Eventually(t, func() bool {
		_, ok := m.CurrentSession(context.Background())
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestAuthenticate_SurvivesLeaderCancellation(t *testing.T) {
	client := newFakeChallengeClient()
	client.gate = make(chan struct{})
	client.started = make(chan struct{})
	m := newTestSessionManager(t, client, nil, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Authenticate(leaderCtx, cowAddress)
		leaderErr <- err
	}()
	<-client.started

	type result struct {
		session core.Session
		err     error
	}
	follower := make(chan result, 1)
	go func() {
		session, err := m.Authenticate(context.Background(), cowAddress)
		follower <- result{session, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-leaderErr, context.Canceled))

	close(client.gate)
	res := <-follower
	require.NoError(t, res.err)
	assert.Equal(t, "access-1", res.session.AccessToken)
	assert.Equal(t, int32(1), client.challenges.Load())
}

func TestLogout_OverlappingAuthenticateStaysPersisted(t *testing.T) {
	client := newFakeChallengeClient()
	mem := store.NewMemoryStore()
	kv := &gatedStore{KeyValueStore: mem, deleting: make(chan struct{}), release: make(chan struct{})}
	m := NewSessionManager(client, newCowSigner(), kv, nil, nil, zaptest.NewLogger(t))

	_, err := m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	logoutErr := make(chan error, 1)
	go func() { logoutErr <- m.Logout(context.Background()) }()
	<-kv.deleting

	client.tokens = core.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}
	authErr := make(chan error, 1)
	go func() {
		_, err := m.Authenticate(context.Background(), cowAddress)
		authErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	close(kv.release)
	require.NoError(t, <-logoutErr)
	require.NoError(t, <-authErr)

	inMemory, ok := m.CurrentSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "access-2", inMemory.AccessToken)

	fresh := NewSessionManager(client, newCowSigner(), mem, nil, nil, zaptest.NewLogger(t))
	persisted, ok := fresh.CurrentSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, inMemory, persisted)
}

func TestCurrentSession_LoadsPersistedCopy(t *testing.T) {
	kv := store.NewMemoryStore()
	data, err := core.MarshalSession(core.NewSession(cowAddress, core.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), SessionKey, data))

	m := NewSessionManager(newFakeChallengeClient(), newCowSigner(), kv, nil, nil, zaptest.NewLogger(t))
	session, ok := m.CurrentSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", session.AccessToken)
	assert.Equal(t, cowAddress, session.Address)
}

func TestCurrentSession_CorruptRecordIsAbsent(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), SessionKey, `{"accessToken":"a"`))

	m := NewSessionManager(newFakeChallengeClient(), newCowSigner(), kv, nil, nil, zaptest.NewLogger(t))
	_, ok := m.CurrentSession(context.Background())
	assert.False(t, ok)

	_, err := m.Info(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoSession))
}

func TestCurrentSession_StoreErrorIsRetried(t *testing.T) {
	mem := store.NewMemoryStore()
	data, err := core.MarshalSession(core.NewSession(cowAddress, core.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, err)
	require.NoError(t, mem.Set(context.Background(), SessionKey, data))
	kv := &failingStore{KeyValueStore: mem, err: errDiskFull}

	m := NewSessionManager(newFakeChallengeClient(), newCowSigner(), kv, nil, nil, zaptest.NewLogger(t))
	_, ok := m.CurrentSession(context.Background())
	assert.False(t, ok)

	kv.err = nil
	_, ok = m.CurrentSession(context.Background())
	assert.True(t, ok)
}

func TestLogout(t *testing.T) {
	client := newFakeChallengeClient()
	kv := &failingStore{KeyValueStore: store.NewMemoryStore()}
	events := &fakeEvents{}
	m := newTestSessionManager(t, client, kv, events)

	_, err := m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	_, ok := m.CurrentSession(context.Background())
	assert.False(t, ok)
	_, err = kv.Get(context.Background(), SessionKey)
	assert.Error(t, err)

	// idempotent
	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, []common.Address{cowAddress}, events.ended)
}

func TestLogout_StoreFailure(t *testing.T) {
	kv := &failingStore{KeyValueStore: store.NewMemoryStore()}
	m := newTestSessionManager(t, newFakeChallengeClient(), kv, nil)
	_, err := m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	kv.err = errDiskFull
	err = m.Logout(context.Background())
	assert.True(t, errors.Is(err, core.ErrStoreFailure))
}

func TestInfo(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := store.NewMemoryStore()
	m := NewSessionManager(newFakeChallengeClient(), newCowSigner(), kv, nil, fixedExpiry(exp), zaptest.NewLogger(t))

	_, err := m.Info(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoSession))

	_, err = m.Authenticate(context.Background(), cowAddress)
	require.NoError(t, err)

	info, err := m.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cowAddress, info.Address)
	require.NotNil(t, info.AccessExpiry)
	assert.Equal(t, exp, *info.AccessExpiry)
}
