package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/session/domain"
)

// Keys kept beyond expiry so that a late refresh still finds (and deletes) its session
// instead of reporting it missing.
const redisRetention = 24 * time.Hour

const createSessionScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1], "user_id", ARGV[2], "refresh_token_hash", ARGV[3], "expires_at", ARGV[4],
  "active", ARGV[5], "last_used_at", ARGV[6], "created_at", ARGV[7], "user_agent", ARGV[8], "ip_address", ARGV[9])
redis.call("PEXPIRE", KEYS[1], ARGV[10])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[10])
redis.call("SADD", KEYS[3], ARGV[1])
redis.call("ZADD", KEYS[4], ARGV[4], ARGV[1])
return 1
`

const rotateSessionScript = `
local cur = redis.call("HGET", KEYS[1], "refresh_token_hash")
if not cur or cur ~= ARGV[1] then
  return 0
end
if redis.call("HGET", KEYS[1], "active") ~= "1" then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[2], "expires_at", ARGV[3], "last_used_at", ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
redis.call("DEL", KEYS[2])
redis.call("SET", KEYS[3], ARGV[6], "PX", ARGV[5])
redis.call("ZADD", KEYS[4], ARGV[3], ARGV[6])
return 1
`

const invalidateUserScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, id in ipairs(ids) do
  local k = ARGV[1] .. id
  if redis.call("HGET", k, "active") == "1" then
    redis.call("HSET", k, "active", "0")
    n = n + 1
  end
end
return n
`

const deleteSessionScript = `
local uid = redis.call("HGET", KEYS[1], "user_id")
local hash = redis.call("HGET", KEYS[1], "refresh_token_hash")
redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
if hash then
  local rt = ARGV[2] .. hash
  if redis.call("GET", rt) == ARGV[1] then
    redis.call("DEL", rt)
  end
end
if uid then
  redis.call("SREM", ARGV[3] .. uid, ARGV[1])
  return 1
end
return 0
`

var (
	createSessionLua  = redis.NewScript(createSessionScript)
	rotateSessionLua  = redis.NewScript(rotateSessionScript)
	invalidateUserLua = redis.NewScript(invalidateUserScript)
	deleteSessionLua  = redis.NewScript(deleteSessionScript)
)

// ErrDuplicateRefreshToken is returned by Create when another session already holds the token.
var ErrDuplicateRefreshToken = errors.New("refresh token already bound to a session")

// RedisRepository stores sessions as Redis hashes with a refresh-token index, a per-user
// set and an expiry sorted set. Multi-key updates run as Lua scripts so that rotation is
// a single compare-and-swap.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRepository returns a session repository backed by rdb. Keys are namespaced by prefix.
func NewRedisRepository(rdb *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "tt"
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) sessionKey(id string) string  { return r.prefix + ":session:" + id }
func (r *RedisRepository) tokenKey(hash string) string  { return r.prefix + ":rt:" + hash }
func (r *RedisRepository) userKey(userID string) string { return r.prefix + ":user:" + userID }
func (r *RedisRepository) expiryKey() string            { return r.prefix + ":expiry" }

func (r *RedisRepository) retentionMillis(expiresAt time.Time) int64 {
	d := expiresAt.Sub(r.now()) + redisRetention
	if d < redisRetention {
		d = redisRetention
	}
	return d.Milliseconds()
}

// Create stores s. Returns ErrDuplicateRefreshToken if the token hash is already indexed.
func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	active := "0"
	if s.Active {
		active = "1"
	}
	res, err := createSessionLua.Run(ctx, r.rdb,
		[]string{r.sessionKey(s.ID), r.tokenKey(s.RefreshTokenHash), r.userKey(s.UserID), r.expiryKey()},
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt.UnixMilli(), active,
		s.LastUsedAt.UnixMilli(), s.CreatedAt.UnixMilli(), s.UserAgent, s.IPAddress,
		r.retentionMillis(s.ExpiresAt),
	).Int64()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if res == 0 {
		return ErrDuplicateRefreshToken
	}
	return nil
}

// GetByID returns the session for id, or nil if not found.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := r.rdb.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeSession(fields)
}

// GetByRefreshToken returns the session holding refreshToken for userID, or nil if not found.
func (r *RedisRepository) GetByRefreshToken(ctx context.Context, refreshToken, userID string) (*domain.Session, error) {
	id, err := r.rdb.Get(ctx, r.tokenKey(security.HashRefreshToken(refreshToken))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by refresh token: %w", err)
	}
	s, err := r.GetByID(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

// Rotate swaps the refresh token atomically; see Repository.
func (r *RedisRepository) Rotate(ctx context.Context, sessionID, presented, next string, expiresAt, usedAt time.Time) error {
	oldHash := security.HashRefreshToken(presented)
	newHash := security.HashRefreshToken(next)
	res, err := rotateSessionLua.Run(ctx, r.rdb,
		[]string{r.sessionKey(sessionID), r.tokenKey(oldHash), r.tokenKey(newHash), r.expiryKey()},
		oldHash, newHash, expiresAt.UnixMilli(), usedAt.UnixMilli(), r.retentionMillis(expiresAt), sessionID,
	).Int64()
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if res == 0 {
		return ErrStaleRefreshToken
	}
	return nil
}

// InvalidateAllByUser deactivates all active sessions for the given user.
func (r *RedisRepository) InvalidateAllByUser(ctx context.Context, userID string) (int64, error) {
	n, err := invalidateUserLua.Run(ctx, r.rdb, []string{r.userKey(userID)}, r.prefix+":session:").Int64()
	if err != nil {
		return 0, fmt.Errorf("invalidate sessions: %w", err)
	}
	return n, nil
}

// Delete removes the session and its index entries. Missing sessions are not an error.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	_, err := r.delete(ctx, id)
	return err
}

func (r *RedisRepository) delete(ctx context.Context, id string) (bool, error) {
	n, err := deleteSessionLua.Run(ctx, r.rdb, []string{r.sessionKey(id), r.expiryKey()},
		id, r.prefix+":rt:", r.prefix+":user:").Int64()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredBefore removes sessions that expired before t.
func (r *RedisRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(t.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}
	var n int64
	for _, id := range ids {
		deleted, err := r.delete(ctx, id)
		if err != nil {
			return n, err
		}
		if deleted {
			n++
		}
	}
	return n, nil
}

// ListActiveByUser returns the user's valid sessions, most recently used first.
// Index entries whose session hash has been evicted are dropped.
func (r *RedisRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	ids, err := r.rdb.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var out []*domain.Session
	var stale []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		s, err := decodeSession(fields)
		if err != nil {
			return nil, err
		}
		if s.IsValid(now) {
			out = append(out, s)
		}
	}
	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, r.userKey(userID), stale...).Err()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

func decodeSession(f map[string]string) (*domain.Session, error) {
	expires, err := parseMillis(f["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("decode session %s: expires_at: %w", f["id"], err)
	}
	lastUsed, err := parseMillis(f["last_used_at"])
	if err != nil {
		return nil, fmt.Errorf("decode session %s: last_used_at: %w", f["id"], err)
	}
	created, err := parseMillis(f["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode session %s: created_at: %w", f["id"], err)
	}
	return &domain.Session{
		ID:               f["id"],
		UserID:           f["user_id"],
		RefreshTokenHash: f["refresh_token_hash"],
		ExpiresAt:        expires,
		Active:           f["active"] == "1",
		LastUsedAt:       lastUsed,
		CreatedAt:        created,
		UserAgent:        f["user_agent"],
		IPAddress:        f["ip_address"],
	}, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
