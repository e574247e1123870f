// internal/repository/postgres/db.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB bundles the repositories that share one pool.
type DB struct {
	pool      *pgxpool.Pool
	Campaigns *CampaignRepository
	Dialing   *DialingRepository
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{
		pool:      pool,
		Campaigns: NewCampaignRepository(pool),
		Dialing:   NewDialingRepository(pool),
	}
}

// Ping checks the pool can reach the server.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
