package db

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// InitPostgres connects the shared pool. The candle mirror is optional, so a
// missing DATABASE_URL or an unreachable server leaves Pool nil instead of
// killing the process.
func InitPostgres(ctx context.Context) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("DATABASE_URL not set, skipping Postgres connection")
		return
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Printf("failed to connect to Postgres, candle mirror disabled: %v", err)
		return
	}
	if err := pool.Ping(ctx); err != nil {
		log.Printf("failed to ping Postgres, candle mirror disabled: %v", err)
		pool.Close()
		return
	}
	Pool = pool
	log.Println("Connected to Postgres")
}
