// Package testutil holds shared test scaffolding: connections to the
// throwaway integration database/redis, and an in-memory transaction fake so
// service tests can run the real transaction flow without storage.
package testutil

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tixgate/config"
	"tixgate/internal/database"
)

func Setup() (*pgxpool.Pool, *redis.Client, func(), error) {
	cfg := config.LoadTest()

	testDB, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}

	if err := testDB.Ping(context.Background()); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to ping test database: %v", err)
	}

	testRdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize test redis: %v", err)
	}

	cleanup := func() {
		testDB.Close()
		testRdb.Close()
		log.Println("Test connections closed")
	}

	return testDB, testRdb, cleanup, nil
}

// SetupRedisOnly initializes only redis, for queue and cache tests.
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTest()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize test redis: %v", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

// FakeTx satisfies pgx.Tx for service tests. Commit and Rollback are no-ops;
// any query method reaching the embedded nil interface panics, which is the
// point: unit-tested services must route all SQL through mocked repositories.
type FakeTx struct {
	pgx.Tx
	Commits   int
	Rollbacks int
}

func (t *FakeTx) Commit(ctx context.Context) error {
	t.Commits++
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error {
	t.Rollbacks++
	return nil
}

// FakeTxStarter hands out FakeTx values. BeginErr, when set, fails BeginTx.
type FakeTxStarter struct {
	Tx       *FakeTx
	BeginErr error
	Begins   int
}

func NewFakeTxStarter() *FakeTxStarter {
	return &FakeTxStarter{Tx: &FakeTx{}}
}

func (s *FakeTxStarter) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	s.Begins++
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return s.Tx, nil
}
