package repository

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces session keys in Redis.
const RedisKeyPrefix = "tt"

// Open returns the session repository for store ("postgres" or "redis").
// The matching connection must be non-nil.
func Open(store string, db *sql.DB, rdb *redis.Client) (Repository, error) {
	switch store {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("session store postgres: no database")
		}
		return NewPostgresRepository(db), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("session store redis: no client")
		}
		return NewRedisRepository(rdb, RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", store)
	}
}

// OpenRedis parses url (redis://...) and returns a client. It does not ping.
func OpenRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
