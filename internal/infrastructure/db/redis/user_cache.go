package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/labook/users-api/internal/api/metrics"
	"github.com/labook/users-api/internal/core/domain"
	"github.com/labook/users-api/internal/core/ports"
)

const defaultCacheTTL = 5 * time.Minute

// cache is the subset of *redis.Client used by CachedUserRepository.
type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedUserRepository puts a Redis read-through cache in front of
// FindViewByID. Only public views are cached (key user:<id>); password
// hashes never leave the store, so FindByID always reads the store.
//
// DeleteByID writes a tombstone (user:<id>:deleted) before evicting. A fill
// re-checks the tombstone after its write and evicts again when present, so
// a lookup racing a delete cannot leave the deleted user cached.
//
// Cache failures are logged and fall through to the wrapped repository; they
// never fail a request.
type CachedUserRepository struct {
	next   ports.UserRepository
	client cache
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedUserRepository wraps next. A non-positive ttl falls back to 5m.
func NewCachedUserRepository(next ports.UserRepository, client cache, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedUserRepository{next: next, client: client, ttl: ttl, log: log}
}

var _ ports.UserRepository = (*CachedUserRepository)(nil)

func (r *CachedUserRepository) FindUsers(ctx context.Context, q string) ([]*domain.User, error) {
	return r.next.FindUsers(ctx, q)
}

func (r *CachedUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedUserRepository) Insert(ctx context.Context, user *domain.User) error {
	return r.next.Insert(ctx, user)
}

func (r *CachedUserRepository) FindViewByID(ctx context.Context, id string) (*domain.UserView, error) {
	if v, ok := r.get(ctx, id); ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	v, err := r.next.FindViewByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.fill(ctx, v)
	return v, nil
}

// DeleteByID deletes from the store, then tombstones and evicts the entry.
func (r *CachedUserRepository) DeleteByID(ctx context.Context, id string) error {
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.tombstoneKey(id), []byte("1"), r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", id).Msg("failed to tombstone deleted user")
	}
	r.evict(ctx, id)
	return nil
}

func (r *CachedUserRepository) get(ctx context.Context, id string) (*domain.UserView, bool) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("user_id", id).Msg("user cache read failed, falling back to store")
		}
		return nil, false
	}

	var v domain.UserView
	if err := json.Unmarshal(raw, &v); err != nil {
		r.log.Warn().Err(err).Str("user_id", id).Msg("corrupt cached user ignored")
		return nil, false
	}
	return &v, true
}

// fill caches v unless the user was deleted meanwhile.
func (r *CachedUserRepository) fill(ctx context.Context, v *domain.UserView) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(v.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", v.ID).Msg("failed to cache user")
		return
	}

	err = r.client.Get(ctx, r.tombstoneKey(v.ID)).Err()
	if errors.Is(err, redis.Nil) {
		return
	}
	// Tombstoned, or unknown: drop the entry either way.
	r.evict(ctx, v.ID)
}

func (r *CachedUserRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", id).Msg("failed to evict cached user")
	}
}

func (r *CachedUserRepository) key(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (r *CachedUserRepository) tombstoneKey(id string) string {
	return fmt.Sprintf("user:%s:deleted", id)
}
