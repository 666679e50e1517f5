package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store archives enriched pools in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the archive table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutPools upserts pools by address. The earliest block is kept and the
// latest reputation outcome replaces the previous one.
func (s *Store) PutPools(ctx context.Context, pools []model.EnrichedPool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, token0, token1, token0_symbol, token1_symbol, stable, creator,
				creator_score, creator_score_error, block_number, block_time, tx_hash, is_first_pool,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				token0_symbol = EXCLUDED.token0_symbol,
				token1_symbol = EXCLUDED.token1_symbol,
				creator = EXCLUDED.creator,
				creator_score = EXCLUDED.creator_score,
				creator_score_error = EXCLUDED.creator_score_error,
				block_number = LEAST(pools.block_number, EXCLUDED.block_number),
				is_first_pool = EXCLUDED.is_first_pool,
				updated_at = now()
		`,
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Token0Symbol,
			pool.Token1Symbol,
			pool.Stable,
			pool.Creator,
			pool.CreatorScore,
			nullString(pool.CreatorScoreError),
			int64(pool.BlockNumber),
			blockTime(pool.Timestamp),
			nullString(pool.TxHash),
			pool.IsFirstPool,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, pool := range pools {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pool %s: %w", pool.Address, err)
		}
	}
	return nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func blockTime(ts uint64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(int64(ts), 0).UTC()
	return &t
}
