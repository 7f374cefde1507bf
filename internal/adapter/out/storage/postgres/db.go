package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"postsapi/pkg/tableinfo"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// DB is satisfied by *pgxpool.Pool, pgx.Tx and *pgx.Conn.
//
//go:generate mockgen -destination=./mocks/db_mock.go -package=mocks . DB
type DB interface {
	trmpgx.Tr
}

type PoolConfig struct {
	DSN      string
	MaxConns int32
}

func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (s *PostStorage) Migrate(ctx context.Context) error {
	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := tr.Exec(ctx, schema); err != nil {
		return fmt.Errorf("exec migrate %s: %w", tableinfo.PostsTableName, err)
	}
	return nil
}

// SyncIDSequence moves the identity sequence past the highest stored id so
// store-assigned ids do not collide with ids inserted explicitly.
func (s *PostStorage) SyncIDSequence(ctx context.Context) error {
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', '%[2]s'), (SELECT COALESCE(MAX(%[2]s), 0) + 1 FROM %[1]s), false)",
		tableinfo.PostsTableName,
		tableinfo.PostIDColumn,
	)

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := tr.Exec(ctx, query); err != nil {
		return fmt.Errorf("exec sync id sequence: %w", err)
	}
	return nil
}
