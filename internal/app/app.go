package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"postsapi/config"
	"postsapi/internal/adapter/in/rest"
	"postsapi/internal/adapter/out/cache/rediscache"
	memstore "postsapi/internal/adapter/out/storage/inmemory"
	pgstore "postsapi/internal/adapter/out/storage/postgres"
	sqlitestore "postsapi/internal/adapter/out/storage/sqlite"
	"postsapi/internal/seed"
	"postsapi/internal/service"
	"postsapi/pkg/logger"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg     config.Config
	srv     *rest.Server
	closers []func()
}

// store is a post store with its transaction manager and release hook.
type store struct {
	posts     service.PostStorage
	trManager service.TxManager
	close     func()
}

func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{cfg: cfg}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)

	if cfg.SeedOnStart {
		if _, err := seed.NewLoader(st.posts, st.trManager).Load(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	postStorage := st.posts
	if cfg.Redis.URL != "" {
		client, err := rediscache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		postStorage = rediscache.NewPostCache(postStorage, client, cfg.Redis.TTL)
		log.Info("redis post cache enabled", "ttl", cfg.Redis.TTL)
	}

	postSvc := service.NewPostService(postStorage, st.trManager)

	a.srv = rest.NewServer(postSvc, rest.Config{
		BodyLimit:      cfg.HTTP.BodyLimit,
		MetricsEnabled: cfg.HTTP.MetricsEnabled,
	}, log)

	log.Info("app initialized", "addr", a.addr(), "storage", cfg.StorageType)
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.StorageType {
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, pgstore.PoolConfig{
			DSN:      cfg.Postgres.GetDSN(),
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return store{}, err
		}
		posts := pgstore.NewPostStorage(pool, trmpgx.DefaultCtxGetter)
		if err := posts.Migrate(ctx); err != nil {
			pool.Close()
			return store{}, err
		}
		return store{
			posts:     posts,
			trManager: manager.Must(trmpgx.NewDefaultFactory(pool)),
			close:     pool.Close,
		}, nil

	case config.StorageSQLite:
		db, err := sqlitestore.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return store{}, err
		}
		posts := sqlitestore.NewPostStorage(db, trmsql.DefaultCtxGetter)
		if err := posts.Migrate(ctx); err != nil {
			_ = db.Close()
			return store{}, err
		}
		return store{
			posts:     posts,
			trManager: manager.Must(trmsql.NewDefaultFactory(db)),
			close:     func() { _ = db.Close() },
		}, nil

	default:
		return store{
			posts:     memstore.NewPostStorage(),
			trManager: memstore.NewTxManager(),
			close:     func() {},
		}, nil
	}
}

func (a *App) addr() string {
	return ":" + a.cfg.HTTP.Port
}

// Handler exposes the HTTP routes without starting a listener.
func (a *App) Handler() http.Handler {
	return a.srv
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// releases the store.
func (a *App) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	defer a.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", a.addr())
		errCh <- a.srv.Start(a.addr())
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases the store and cache connections. It is safe to call twice.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
