package convmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares conversation memory across coordinator replicas,
// keyed the same way InMemoryStore is structured (bounded turn list +
// a pending-question hash per user), using redis/go-redis/v9 pipelines
// the way the pack's session-store implementations do.
type RedisStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore dials redisURL and verifies connectivity with a Ping,
// matching the pack's redis-store constructors.
func NewRedisStore(ctx context.Context, redisURL string, maxTurns int, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("convmemory: invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("convmemory: redis ping failed: %w", err)
	}

	return &RedisStore{client: client, maxTurns: maxTurns, ttl: ttl}, nil
}

func (r *RedisStore) turnsKey(userID string) string   { return fmt.Sprintf("synesis:convmem:%s:turns", userID) }
func (r *RedisStore) pendingKey(userID string) string { return fmt.Sprintf("synesis:convmem:%s:pending", userID) }

// StoreTurn RPushes the turn and trims to maxTurns, refreshing the TTL
// on the turns key, matching the pack's sliding-window-plus-TTL idiom.
func (r *RedisStore) StoreTurn(ctx context.Context, userID string, turn Turn) error {
	turn.Content = truncate(turn.Content, maxTurnContentChars)
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("convmemory: marshal turn: %w", err)
	}

	key := r.turnsKey(userID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -int64(r.maxTurns), -1)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("convmemory redis store_turn failed", "user_id", userID, "error", err)
		return fmt.Errorf("convmemory: store turn: %w", err)
	}
	return nil
}

// History returns the last maxTurns turns for the user.
func (r *RedisStore) History(ctx context.Context, userID string, maxTurns int) ([]Turn, error) {
	limit := maxTurns
	if limit <= 0 {
		limit = r.maxTurns
	}
	raw, err := r.client.LRange(ctx, r.turnsKey(userID), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("convmemory: history: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Summary renders the same prompt-ready block as InMemoryStore.
func (r *RedisStore) Summary(ctx context.Context, userID string) (string, error) {
	turns, err := r.History(ctx, userID, defaultSummaryTurns)
	if err != nil || len(turns) == 0 {
		return "", err
	}
	out := "## Conversation History\nThe user has had previous interactions. Recent context:\n"
	for _, t := range turns {
		out += fmt.Sprintf("- [%s]: %s\n", t.Role, truncate(t.Content, maxHistoryLineChars))
	}
	out += "\nUse this context to understand references like \"it\", \"that script\", \"the previous one\", etc."
	return out, nil
}

// SetPending stores the pending question in a hash after a plain
// check-then-set: an HGetAll read rejects an unexpired question from a
// different source, then a pipelined HSet writes the new one. The read
// and the write are not atomic, so two replicas racing on the same
// user can both pass the check.
func (r *RedisStore) SetPending(ctx context.Context, userID string, pq PendingQuestion) error {
	key := r.pendingKey(userID)
	existing, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("convmemory: read pending: %w", err)
	}
	if len(existing) > 0 {
		expiresAt, _ := time.Parse(time.RFC3339, existing["expires_at"])
		if time.Now().Before(expiresAt) && existing["source"] != pq.Source {
			return ErrPendingQuestionActive
		}
	}

	data := map[string]interface{}{
		"source":     pq.Source,
		"context":    pq.Context,
		"expires_at": pq.ExpiresAt.Format(time.RFC3339),
	}
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, time.Until(pq.ExpiresAt)+time.Minute)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("convmemory: set pending: %w", err)
	}
	return nil
}

// ClearOrMatch returns and deletes the pending question if unexpired
// and raised by source.
func (r *RedisStore) ClearOrMatch(ctx context.Context, userID string, source string) (*PendingQuestion, error) {
	key := r.pendingKey(userID)
	existing, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(existing) == 0 {
		return nil, nil
	}
	expiresAt, _ := time.Parse(time.RFC3339, existing["expires_at"])
	if time.Now().After(expiresAt) || existing["source"] != source {
		return nil, nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("convmemory: clear pending: %w", err)
	}
	return &PendingQuestion{Source: existing["source"], Context: existing["context"], ExpiresAt: expiresAt}, nil
}

// ExpireStale is a no-op for RedisStore: per-key TTLs already expire
// turns/pending hashes server-side, so there is no local sweep to run.
func (r *RedisStore) ExpireStale(ctx context.Context, now time.Time) int {
	return 0
}

// Close releases the underlying redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
