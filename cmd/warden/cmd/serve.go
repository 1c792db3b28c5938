package cmd

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/adapters/events"
	"github.com/wardenhq/warden/adapters/registrystore"
	"github.com/wardenhq/warden/adapters/store"
	"github.com/wardenhq/warden/adapters/tokenizer"
	"github.com/wardenhq/warden/config"
	"github.com/wardenhq/warden/metrics"
	"github.com/wardenhq/warden/ports"
	"github.com/wardenhq/warden/service"
	httptransport "github.com/wardenhq/warden/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the auth and registry HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()

		signKey, err := loadSigningKey(cfg.SigningKeyHex)
		if err != nil {
			return err
		}

		var (
			challenges ports.ChallengeStore
			revoked    ports.RevocationStore
			publisher  message.Publisher
		)

		wmLogger := watermill.NewStdLogger(false, false)

		if cfg.RedisURL != "" {
			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return err
			}
			redisClient := redis.NewClient(opts)

			publisher, err = redisstream.NewPublisher(
				redisstream.PublisherConfig{Client: redisClient},
				wmLogger,
			)
			if err != nil {
				return err
			}

			challenges = store.NewRedisChallengeStore(redisClient)
			revoked = store.NewRedisRevocationStore(redisClient)
		} else {
			log.Printf("no redis configured, running with in-memory stores")
			publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
			challenges = store.NewMemoryChallengeStore()
			revoked = store.NewMemoryRevocationStore()
		}

		registryStore, err := registrystore.NewBoltFromFile(cfg.RegistryDBPath, nil)
		if err != nil {
			return err
		}
		defer registryStore.Close()

		eventPub := events.NewWatermillPublisher(publisher)
		m := metrics.New()

		deployer := cfg.Deployer
		if deployer == "" {
			// Nobody controls the zero address, so no account holds a role
			// until one is configured.
			deployer = "0x0000000000000000000000000000000000000000"
			log.Printf("WARDEN_DEPLOYER not set, registry writes are disabled")
		}

		authService := service.NewAuthService(
			tokenizer.NewJWTTokenizer(signKey),
			challenges,
			revoked,
			eventPub,
			service.WithChallengeTTL(cfg.ChallengeTTL),
			service.WithSessionTTL(cfg.SessionTTL),
			service.WithAuthMetrics(m),
		)

		registryService, err := service.NewRegistryService(registryStore, eventPub, deployer, m)
		if err != nil {
			return err
		}

		router := httptransport.SetupRouter(authService, registryService, service.NewReconciler(registryService))

		srv := &http.Server{Addr: cfg.Addr, Handler: router}

		go func() {
			log.Printf("starting warden on %s", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server error: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

// loadSigningKey parses a hex-encoded P-256 scalar, or generates an ephemeral
// key when none is configured.
func loadSigningKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		log.Printf("WARDEN_SIGNING_KEY not set, generating an ephemeral credential signing key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, err
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())
	return key, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
