// Package daemon composes the messaging subsystem into a runnable
// process via fx.
package daemon

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"ordertalk/internal/attach"
	"ordertalk/internal/blob"
	"ordertalk/internal/bus"
	"ordertalk/internal/chat"
	"ordertalk/internal/config"
	"ordertalk/internal/identity"
	"ordertalk/internal/lock"
	"ordertalk/internal/logging"
	"ordertalk/internal/store"
)

// Params holds the daemon invocation parameters.
type Params struct {
	ConfigPath string
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideBlobStore,
			provideProvider,
			provideCache,
			provideEncoder,
			provideChatService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath(), cfg.UserID)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", cfg.Dir()))
	l, err := lock.Acquire(cfg.Dir())
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	dbPath := cfg.DBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBlobStore(cfg *config.Config) (blob.Store, error) {
	s := cfg.Storage
	return blob.NewMinioStore(s.Endpoint, s.AccessKey, s.SecretKey, s.Bucket, s.PublicBaseURL, s.UseSSL)
}

func provideProvider(cfg *config.Config) identity.Provider {
	return identity.NewStaticProvider(cfg.UserID)
}

func provideCache(db *store.DB, cfg *config.Config) *identity.Cache {
	return identity.NewCache(db, cfg.IdentityTTL())
}

func provideEncoder(blobs blob.Store, cfg *config.Config, logger *zap.Logger) *attach.Encoder {
	return attach.NewEncoder(blobs, cfg.Storage.KeyPrefix, logger)
}

func provideChatService(db *store.DB, b *bus.Bus, encoder *attach.Encoder, provider identity.Provider, cache *identity.Cache, logger *zap.Logger) *chat.Service {
	return chat.NewService(db, b, encoder, provider, cache, logger)
}

func registerLifecycle(lc fx.Lifecycle, svc *chat.Service, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	var conn *chat.Connection

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c, err := svc.Connect(ctx)
			if errors.Is(err, chat.ErrUnauthenticated) {
				// Degrade: the daemon runs without a live stream until
				// a user is configured.
				logger.Warn("no user configured, starting without live connection")
				return nil
			}
			if err != nil {
				return err
			}
			conn = c
			conn.OnMessage(func(m *chat.Message) {
				logger.Info("message delivered",
					zap.String("conversation", m.ConversationID),
					zap.String("sender", m.SenderName),
					zap.String("type", string(m.Kind)))
			})
			logger.Info("live connection open")
			return nil
		},
		OnStop: func(_ context.Context) error {
			if conn != nil {
				conn.Close()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
