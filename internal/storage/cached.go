package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"

	"github.com/redis/go-redis/v9"
)

// Entries are stored as "<version>:<json>". A delete leaves a tombstone at
// tombstoneVersion so a read that started before it cannot repopulate the key.
const tombstoneVersion int64 = 1<<53 - 1

// setIfNewer writes ARGV[2] unless the cached entry already carries a
// version >= ARGV[1]. ARGV[3] is the TTL in milliseconds (0 for none).
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local v = tonumber(string.match(cur, '^(%d+):'))
  if v and v >= tonumber(ARGV[1]) then
    return 0
  end
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// CachedStore is a read-through Redis cache in front of another Gateway.
// Only single-candidate reads are cached. Committed writes are written
// through, deletes leave a tombstone, and cache writes never replace a newer
// version. Redis failures are logged and the call falls through to the inner
// store.
type CachedStore struct {
	inner  Gateway
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Gateway, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "candidate-cache"),
	}
}

// CacheKey is the Redis key of one candidate. Tenant is part of the key.
func CacheKey(tenantID, id string) string {
	return fmt.Sprintf("candidate:%s:%s", tenantID, id)
}

func (s *CachedStore) FindOne(ctx context.Context, tenantID, id string) (*models.Candidate, error) {
	key := CacheKey(tenantID, id)

	raw, err := s.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		c, tombstone, ok := decodeEntry(raw)
		if tombstone {
			break
		}
		if ok && c.OrgID == tenantID {
			return c, nil
		}
		s.invalidate(ctx, key)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	c, err := s.inner.FindOne(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, c)
	return c, nil
}

func (s *CachedStore) Find(ctx context.Context, tenantID string, filter models.CandidateFilter) ([]*models.Candidate, error) {
	return s.inner.Find(ctx, tenantID, filter)
}

func (s *CachedStore) Insert(ctx context.Context, tenantID string, c *models.Candidate) (*models.Candidate, error) {
	return s.inner.Insert(ctx, tenantID, c)
}

func (s *CachedStore) Update(ctx context.Context, tenantID, id string, m Mutation) (*models.Candidate, error) {
	key := CacheKey(tenantID, id)
	c, err := s.inner.Update(ctx, tenantID, id, m)
	if err != nil {
		// a missing candidate may sit behind a tombstone that must stay
		if !errors.Is(err, ErrNotFound) {
			s.invalidate(ctx, key)
		}
		return nil, err
	}
	s.store(ctx, key, c)
	return c, nil
}

func (s *CachedStore) DeleteOne(ctx context.Context, tenantID, id string) error {
	err := s.inner.DeleteOne(ctx, tenantID, id)
	s.tombstone(ctx, CacheKey(tenantID, id))
	return err
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return s.inner.Ping(ctx)
}

func (s *CachedStore) store(ctx context.Context, key string, c *models.Candidate) {
	entry, err := encodeEntry(c)
	if err != nil {
		return
	}
	args := []interface{}{c.Version, entry, s.ttl.Milliseconds()}
	if err := setIfNewer.Run(ctx, s.redis, []string{key}, args...).Err(); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (s *CachedStore) tombstone(ctx context.Context, key string) {
	entry := strconv.FormatInt(tombstoneVersion, 10) + ":"
	if err := s.redis.Set(ctx, key, entry, s.ttl).Err(); err != nil {
		s.logger.Warn("cache tombstone failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (s *CachedStore) invalidate(ctx context.Context, key string) {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func encodeEntry(c *models.Candidate) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(c.Version, 10) + ":" + string(raw), nil
}

// decodeEntry reports ok=false for entries it cannot parse.
func decodeEntry(entry string) (c *models.Candidate, tombstone, ok bool) {
	prefix, doc, found := strings.Cut(entry, ":")
	if !found {
		return nil, false, false
	}
	version, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return nil, false, false
	}
	if version == tombstoneVersion {
		return nil, true, true
	}
	var out models.Candidate
	if err := json.Unmarshal([]byte(doc), &out); err != nil || out.Version != version {
		return nil, false, false
	}
	return &out, false, true
}
