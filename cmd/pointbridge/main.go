package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/adapters/ethsig"
	"github.com/crosswalk-games/pointbridge/adapters/events"
	"github.com/crosswalk-games/pointbridge/adapters/store"
	"github.com/crosswalk-games/pointbridge/adapters/tokenizer"
	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
	"github.com/crosswalk-games/pointbridge/service"
	transporthttp "github.com/crosswalk-games/pointbridge/transport/http"
)

func main() {
	app := &cli.App{
		Name:  "pointbridge",
		Usage: "Game point authorization signer",
		Description: `Verifies wallet-signed auth assertions and issues co-signed,
nonce-advancing mint/burn approvals for the external point ledger.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "signer-key",
				Usage:    "Hex-encoded secp256k1 private key used to co-sign approvals",
				EnvVars:  []string{"SIGNER_SECRET_KEY"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "ledger-address",
				Usage:    "Point ledger contract address included in the approval tuple",
				EnvVars:  []string{"GAME_POINT_ADDRESS"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "app-id",
				Usage:   "Canonical app identifier used in the auth message template",
				Value:   "crosswalk",
				EnvVars: []string{"APP_ID"},
			},
			&cli.Int64Flag{
				Name:    "interactive-expiry-ms",
				Usage:   "Interactive assertion expiry window in milliseconds",
				Value:   core.DefaultInteractiveWindow.Milliseconds(),
				EnvVars: []string{"SIGNATURE_EXPIRE_TIME_MILLI"},
			},
			&cli.Int64Flag{
				Name:    "api-expiry-ms",
				Usage:   "API assertion expiry window in milliseconds",
				Value:   core.DefaultAPIWindow.Milliseconds(),
				EnvVars: []string{"SIGNATURE_EXPIRE_API_TIME_MILLI"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the approval audit store and event stream (optional)",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address",
				Value:   ":9000",
				EnvVars: []string{"LISTEN_ADDR"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{"VERBOSE"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("pointbridge: %v", err)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	signerKey, err := crypto.HexToECDSA(strings.TrimPrefix(c.String("signer-key"), "0x"))
	if err != nil {
		return fmt.Errorf("%w: invalid signer key: %v", core.ErrConfiguration, err)
	}

	cfg := &core.Config{
		AppID:             c.String("app-id"),
		LedgerAddress:     c.String("ledger-address"),
		InteractiveWindow: time.Duration(c.Int64("interactive-expiry-ms")) * time.Millisecond,
		APIWindow:         time.Duration(c.Int64("api-expiry-ms")) * time.Millisecond,
	}

	approvalStore, eventPub, err := buildStoreAndEvents(c.String("redis-url"))
	if err != nil {
		return err
	}

	verifier, err := service.NewVerifierService(cfg, ethsig.NewPersonalSignVerifier(), logger)
	if err != nil {
		return err
	}

	signer, err := service.NewSignerService(cfg, verifier, ethsig.NewApprovalSigner(signerKey), approvalStore, eventPub, logger)
	if err != nil {
		return err
	}

	// Session tokens are process-scoped, so an ephemeral P-256 key is fine.
	sessionKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate session key: %w", err)
	}
	sessions := tokenizer.NewJWTTokenizer(sessionKey, cfg.InteractiveWindow)

	handlers := transporthttp.NewHandlers(verifier, signer, sessions, logger)
	router := transporthttp.SetupRouter(handlers)

	logger.Info("starting pointbridge",
		zap.String("listen", c.String("listen")),
		zap.String("app_id", cfg.AppID),
		zap.String("ledger", cfg.LedgerAddress),
	)

	return router.Run(c.String("listen"))
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildStoreAndEvents wires the redis-backed audit store and the watermill
// approval stream when a redis URL is configured, and falls back to the
// in-memory store otherwise.
func buildStoreAndEvents(redisURL string) (ports.ApprovalStore, ports.EventPublisher, error) {
	if redisURL == "" {
		return store.NewMemoryStore(), nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid redis url: %v", core.ErrConfiguration, err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	return store.NewRedisStore(redisClient), events.NewWatermillPublisher(publisher), nil
}
