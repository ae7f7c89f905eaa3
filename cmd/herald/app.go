package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/layer-3/herald/adapters/chain"
	"github.com/layer-3/herald/adapters/contract"
	"github.com/layer-3/herald/adapters/events"
	"github.com/layer-3/herald/adapters/lensapi"
	"github.com/layer-3/herald/adapters/signer"
	"github.com/layer-3/herald/adapters/store"
	"github.com/layer-3/herald/adapters/tokenizer"
	"github.com/layer-3/herald/config"
	"github.com/layer-3/herald/ports"
	"github.com/layer-3/herald/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "herald:"

// app is the wired object graph behind every command
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	sessions  *service.SessionManager
	metadata  *service.MetadataService
	publisher *service.Publisher

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient)
	}

	kv, err := a.openStore(redisClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	var eventPub ports.EventPublisher
	if redisClient != nil {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			events.NewZapLoggerAdapter(logger),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		a.closers = append(a.closers, publisher)
		eventPub = events.NewWatermillPublisher(publisher)
	}

	wallet, submitKey, err := a.openSigner(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	lens := lensapi.NewClient(cfg.APIURL, nil, logger)
	a.sessions = service.NewSessionManager(lens, wallet, kv, eventPub, tokenizer.NewJWTInspector(), logger)
	a.metadata = service.NewMetadataService(lens, lens, a.sessions, logger)

	if !cfg.CanSubmit() {
		return a, nil
	}
	submitter, err := a.openSubmitter(ctx, submitKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.publisher = service.NewPublisher(
		a.sessions,
		service.NewTypedDataRequester(lens, logger),
		service.NewStructuredDataSigner(logger),
		submitter,
		eventPub,
		logger,
	)
	a.publisher.ReauthOnUnauthorized = cfg.Reauth
	return a, nil
}

func (a *app) openStore(redisClient *redis.Client) (ports.KeyValueStore, error) {
	switch a.cfg.Store {
	case config.StoreBadger:
		s, err := store.NewBadgerStore(a.cfg.DataDir, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.StoreRedis:
		return store.NewRedisStore(redisClient, redisKeyPrefix), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// openSigner returns the user's signer and the key transactions are sent
// with. A local signing key also pays for its own transactions unless a
// submitter key is given.
func (a *app) openSigner(ctx context.Context) (ports.Signer, *ecdsa.PrivateKey, error) {
	var (
		wallet    ports.Signer
		submitKey *ecdsa.PrivateKey
		err       error
	)
	if a.cfg.Signer.PrivateKey != "" {
		if submitKey, err = parseKey(a.cfg.Signer.PrivateKey); err != nil {
			return nil, nil, fmt.Errorf("invalid signer key: %w", err)
		}
		wallet = signer.NewKeySigner(submitKey)
	} else {
		remote, err := signer.DialRemoteSigner(ctx, a.cfg.Signer.URL, common.HexToAddress(a.cfg.Signer.Address), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to remote signer: %w", err)
		}
		a.closers = append(a.closers, closerFunc(func() error {
			remote.Close()
			return nil
		}))
		wallet = remote
	}

	if a.cfg.SubmitterKey != "" {
		if submitKey, err = parseKey(a.cfg.SubmitterKey); err != nil {
			return nil, nil, fmt.Errorf("invalid submitter key: %w", err)
		}
	}
	if a.cfg.Signer.Confirm {
		wallet = signer.WithConfirmation(wallet, signer.SurveyConfirm)
	}
	return wallet, submitKey, nil
}

func (a *app) openSubmitter(ctx context.Context, key *ecdsa.PrivateKey) (ports.ActionSubmitter, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, a.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	a.closers = append(a.closers, closerFunc(func() error {
		client.Close()
		return nil
	}))

	sender, err := chain.NewSender(dialCtx, client, key, a.logger)
	if err != nil {
		return nil, err
	}
	if sender.ChainID().Uint64() != a.cfg.ChainID {
		return nil, fmt.Errorf("rpc serves chain %s, expected %d (%s)", sender.ChainID(), a.cfg.ChainID, a.cfg.Chain)
	}
	submitter, err := contract.NewSubmitter(a.cfg.LensHubAddress(), sender, a.logger)
	if err != nil {
		return nil, err
	}
	return submitter, nil
}

func (a *app) requirePublisher() (*service.Publisher, error) {
	if a.publisher == nil {
		return nil, fmt.Errorf("--rpc-url is required to submit actions")
	}
	return a.publisher, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}
