package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/supabase-community/supabase-go"
	"reelcraft-server/modules/common/logger"
)

var log = logger.For("quota")

var (
	// ErrQuotaExceeded - the team used every video of the current period
	ErrQuotaExceeded = errors.New("monthly video quota exceeded")
	// ErrNoSubscription - the team has no subscriptions row
	ErrNoSubscription = errors.New("team has no subscription")
)

// Usage - counter state after a consume
type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

const consumeSQL = `
UPDATE subscriptions
   SET videos_generated_this_month = videos_generated_this_month + 1,
       updated_at = now()
 WHERE team_id = $1
   AND videos_generated_this_month < video_limit
RETURNING videos_generated_this_month, video_limit`

const usageSQL = `
SELECT videos_generated_this_month, video_limit
  FROM subscriptions
 WHERE team_id = $1`

// PgStore - check-and-increment in one conditional UPDATE
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore - connect to DATABASE_URL
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	log.Info("✅ Quota store connected to Postgres")
	return &PgStore{pool: pool}, nil
}

// Close - release the pool
func (s *PgStore) Close() {
	s.pool.Close()
}

// Consume - take one video from the team's allowance
func (s *PgStore) Consume(ctx context.Context, teamID string) (Usage, error) {
	var usage Usage
	err := s.pool.QueryRow(ctx, consumeSQL, teamID).Scan(&usage.Used, &usage.Limit)
	if err == nil {
		log.Infof("💰 Quota consumed for team %s: %d/%d", teamID, usage.Used, usage.Limit)
		return usage, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Usage{}, fmt.Errorf("failed to consume quota: %w", err)
	}

	// no row updated: either exhausted or no subscription at all
	err = s.pool.QueryRow(ctx, usageSQL, teamID).Scan(&usage.Used, &usage.Limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usage{}, ErrNoSubscription
	}
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read quota: %w", err)
	}
	log.Warnf("⚠️ Quota exhausted for team %s: %d/%d", teamID, usage.Used, usage.Limit)
	return usage, ErrQuotaExceeded
}

// RPCStore - same gate through a Postgres function exposed by PostgREST
//
//	consume_video_quota(p_team_id uuid) returns json {allowed, used, limit}
type RPCStore struct {
	supabase *supabase.Client
}

func NewRPCStore(client *supabase.Client) *RPCStore {
	return &RPCStore{supabase: client}
}

type rpcResult struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

// Consume - take one video from the team's allowance
func (s *RPCStore) Consume(ctx context.Context, teamID string) (Usage, error) {
	raw := s.supabase.Rpc("consume_video_quota", "", map[string]interface{}{
		"p_team_id": teamID,
	})
	return parseRPCResult(teamID, raw)
}

func parseRPCResult(teamID, raw string) (Usage, error) {
	if raw == "" || raw == "null" {
		return Usage{}, fmt.Errorf("failed to consume quota: empty rpc response for team %s", teamID)
	}

	var result rpcResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Usage{}, fmt.Errorf("failed to parse quota rpc response: %w", err)
	}

	usage := Usage{Used: result.Used, Limit: result.Limit}
	if result.Limit == 0 && !result.Allowed {
		return usage, ErrNoSubscription
	}
	if !result.Allowed {
		return usage, ErrQuotaExceeded
	}
	return usage, nil
}
