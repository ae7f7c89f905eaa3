package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/layer-3/herald/config"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/logger"
	"github.com/layer-3/herald/service"
	transport "github.com/layer-3/herald/transport/http"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "herald",
		Usage: "Authorize and submit Lens publications with a wallet signature",
		Description: `herald logs a wallet in to the Lens API with a signed challenge, asks the
API for the typed data of a post, comment or mirror, signs it and submits the
split signature to the LensHub contract.`,
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "chain",
				Usage:   "Chain to act on: " + config.GetSupportedChainsString(),
				Value:   string(config.ChainName_Mumbai),
				EnvVars: []string{config.EnvChain},
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Lens API endpoint (default: chain preset)",
				EnvVars: []string{config.EnvAPIURL},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "JSON-RPC endpoint transactions are sent through",
				EnvVars: []string{config.EnvRPCURL},
			},
			&cli.StringFlag{
				Name:    "lens-hub",
				Usage:   "LensHub contract address (default: chain preset)",
				EnvVars: []string{config.EnvLensHub},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Hex secp256k1 key to sign with",
				EnvVars: []string{config.EnvPrivateKey},
			},
			&cli.StringFlag{
				Name:    "signer-url",
				Usage:   "Remote wallet JSON-RPC endpoint to sign with",
				EnvVars: []string{config.EnvSignerURL},
			},
			&cli.StringFlag{
				Name:    "signer-address",
				Usage:   "Address the remote wallet signs for",
				EnvVars: []string{config.EnvSignerAddress},
			},
			&cli.StringFlag{
				Name:    "submitter-key",
				Usage:   "Hex key paying for transactions (default: the signing key)",
				EnvVars: []string{config.EnvSubmitterKey},
			},
			&cli.BoolFlag{
				Name:    "confirm",
				Usage:   "Ask before every signature",
				EnvVars: []string{config.EnvConfirm},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Session store: memory, badger or redis",
				Value:   string(config.StoreBadger),
				EnvVars: []string{config.EnvStore},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory of the badger session store",
				Value:   defaultDataDir(),
				EnvVars: []string{config.EnvDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the session store and event stream",
				EnvVars: []string{config.EnvRedisURL},
			},
			&cli.BoolFlag{
				Name:    "reauth",
				Usage:   "Log in again once when the API rejects the access token",
				Value:   true,
				EnvVars: []string{config.EnvReauth},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign the API challenge and store the session",
				Action: withApp(loginCommand),
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: withApp(logoutCommand),
			},
			{
				Name:   "whoami",
				Usage:  "Show the stored session and its default profile",
				Action: withApp(whoamiCommand),
			},
			{
				Name:  "metadata",
				Usage: "Build and validate a text publication document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "handle", Usage: "Handle of the author", Required: true},
					&cli.StringFlag{Name: "content", Usage: "Text of the publication", Required: true},
				},
				Action: withApp(metadataCommand),
			},
			{
				Name:   "post",
				Usage:  "Publish a post",
				Flags:  append(publicationFlags(), contentURIFlag()),
				Action: withApp(publishCommand(core.ActionPost)),
			},
			{
				Name:   "comment",
				Usage:  "Comment on a publication",
				Flags:  append(publicationFlags(), contentURIFlag(), publicationIDFlag()),
				Action: withApp(publishCommand(core.ActionComment)),
			},
			{
				Name:   "mirror",
				Usage:  "Mirror a publication",
				Flags:  append(publicationFlags(), publicationIDFlag()),
				Action: withApp(publishCommand(core.ActionMirror)),
			},
			{
				Name:  "serve",
				Usage: "Serve the session and publication operations over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Usage:   "Address to listen on",
						Value:   "127.0.0.1:9000",
						EnvVars: []string{config.EnvListen},
					},
				},
				Action: withApp(serveCommand),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func publicationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile-id", Usage: "Profile acting (default: the default profile of the session)"},
		&cli.StringFlag{Name: "collect", Usage: "Collect module: free or revert", Value: string(core.CollectFree)},
		&cli.BoolFlag{Name: "follower-only-collect", Usage: "Only followers may collect"},
		&cli.BoolFlag{Name: "follower-only-reference", Usage: "Only followers may comment or mirror"},
	}
}

func contentURIFlag() cli.Flag {
	return &cli.StringFlag{Name: "content-uri", Usage: "URI of the publication metadata", Required: true}
}

func publicationIDFlag() cli.Flag {
	return &cli.StringFlag{Name: "publication-id", Usage: "Publication commented on or mirrored", Required: true}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".herald"
	}
	return dir + "/herald"
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Chain:   config.ChainName(c.String("chain")),
		APIURL:  c.String("api-url"),
		RPCURL:  c.String("rpc-url"),
		LensHub: c.String("lens-hub"),
		Signer: config.SignerConfig{
			PrivateKey: c.String("private-key"),
			URL:        c.String("signer-url"),
			Address:    c.String("signer-address"),
			Confirm:    c.Bool("confirm"),
		},
		SubmitterKey: c.String("submitter-key"),
		Store:        config.StoreBackend(c.String("store")),
		DataDir:      c.String("data-dir"),
		RedisURL:     c.String("redis-url"),
		Reauth:       c.Bool("reauth"),
		Listen:       c.String("listen"),
		Verbose:      c.Bool("verbose"),
	}
	if err := cfg.ApplyChainDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withApp wires the application for a command and tears it down afterwards
func withApp(action func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		c.Context = ctx

		a, err := newApp(ctx, cfg, l)
		if err != nil {
			return err
		}
		defer a.Close()
		return action(c, a)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCommand(c *cli.Context, a *app) error {
	address := a.sessions.Signer().Address()
	fmt.Printf("Logging in %s\n", address.Hex())

	_, err := service.Retry(c.Context, service.DefaultRetryPolicy, a.logger, func(ctx context.Context) (core.Session, error) {
		return a.sessions.Authenticate(ctx, address)
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	info, err := a.sessions.Info(c.Context)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func logoutCommand(c *cli.Context, a *app) error {
	if err := a.sessions.Logout(c.Context); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func whoamiCommand(c *cli.Context, a *app) error {
	info, err := a.sessions.Info(c.Context)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"session": info}
	profile, err := a.metadata.DefaultProfile(c.Context)
	switch {
	case err == nil:
		out["profile"] = profile
	case errors.Is(err, core.ErrInvalidRequest):
	default:
		a.logger.Warn("Failed to resolve default profile", zap.Error(err))
	}
	return printJSON(out)
}

func metadataCommand(c *cli.Context, a *app) error {
	doc := service.BuildTextMetadata(c.String("handle"), c.String("content"))
	verdict, err := a.metadata.Validate(c.Context, doc)
	if err != nil {
		return fmt.Errorf("failed to validate metadata: %w", err)
	}
	if !verdict.Valid {
		return fmt.Errorf("metadata rejected: %s", verdict.Reason)
	}
	return printJSON(doc)
}

func publishCommand(kind core.ActionKind) func(c *cli.Context, a *app) error {
	return func(c *cli.Context, a *app) error {
		publisher, err := a.requirePublisher()
		if err != nil {
			return err
		}
		if _, err := publisher.EnsureSession(c.Context); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		profileID := c.String("profile-id")
		if profileID == "" {
			profile, err := a.metadata.DefaultProfile(c.Context)
			if err != nil {
				return fmt.Errorf("no --profile-id given: %w", err)
			}
			profileID = profile.ID
		}

		action := core.ActionRequest{
			Kind:          kind,
			ProfileID:     profileID,
			ContentURI:    c.String("content-uri"),
			PublicationID: c.String("publication-id"),
			CollectModule: core.CollectModule{
				Kind:         core.CollectKind(c.String("collect")),
				FollowerOnly: c.Bool("follower-only-collect"),
			},
			ReferenceModule: core.ReferenceModule{FollowerOnly: c.Bool("follower-only-reference")},
		}
		tx, err := service.Retry(c.Context, service.DefaultRetryPolicy, a.logger, func(ctx context.Context) (core.TxHandle, error) {
			return publisher.Publish(ctx, action)
		})
		if err != nil {
			if reason, ok := core.RevertReason(err); ok {
				return fmt.Errorf("LensHub rejected the %s: %s", kind, reason)
			}
			return fmt.Errorf("%s failed: %w", kind, err)
		}
		return printJSON(tx)
	}
}

func serveCommand(c *cli.Context, a *app) error {
	publisher, err := a.requirePublisher()
	if err != nil {
		return err
	}
	handlers := transport.NewHandlers(a.sessions, publisher, a.metadata, service.DefaultRetryPolicy, a.logger)
	server := &http.Server{
		Addr:              c.String("listen"),
		Handler:           transport.SetupRouter(handlers, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Serving", zap.String("listen", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-c.Context.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
