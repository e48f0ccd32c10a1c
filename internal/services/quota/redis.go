package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix = "quota:"
	dayLayout = "2006-01-02"
)

// incrementScript resets the record on day change and applies the increment
// only when it fits under the limit. Returns {applied, count}.
var incrementScript = redis.NewScript(`
local day = redis.call('HGET', KEYS[1], 'day')
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local fresh = day ~= ARGV[1]
if fresh then
	count = 0
end
local n = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
if count + n > limit then
	if fresh then
		redis.call('HSET', KEYS[1], 'day', ARGV[1], 'count', 0)
		redis.call('PEXPIREAT', KEYS[1], ARGV[4])
	end
	return {0, count}
end
count = count + n
redis.call('HSET', KEYS[1], 'day', ARGV[1], 'count', count)
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return {1, count}
`)

// RedisStore shares quota state between replicas. Keys expire the day after
// the record's day, so stale identities disappear without a sweep.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(identity string) string {
	return KeyPrefix + identity
}

// expiryFor returns the unix millisecond timestamp at which a record for day
// stops being useful: the end of the following UTC day.
func expiryFor(day string) (int64, error) {
	start, err := time.Parse(dayLayout, day)
	if err != nil {
		return 0, fmt.Errorf("invalid quota day %q: %w", day, err)
	}
	return start.Add(48 * time.Hour).UnixMilli(), nil
}

func (s *RedisStore) Get(ctx context.Context, identity string) (models.QuotaRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, key(identity)).Result()
	if err != nil {
		return models.QuotaRecord{}, false, fmt.Errorf("quota get error: %w", err)
	}
	if len(fields) == 0 {
		return models.QuotaRecord{}, false, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return models.QuotaRecord{}, false, fmt.Errorf("corrupt quota count for %s: %w", identity, err)
	}
	return models.QuotaRecord{Identity: identity, Count: count, Day: fields["day"]}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, record models.QuotaRecord) error {
	expireAt, err := expiryFor(record.Day)
	if err != nil {
		return err
	}

	k := key(record.Identity)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "day", record.Day, "count", record.Count)
		pipe.PExpireAt(ctx, k, time.UnixMilli(expireAt))
		return nil
	})
	if err != nil {
		return fmt.Errorf("quota set error: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrementWithReset(ctx context.Context, identity, day string, n, limit int) (models.QuotaRecord, bool, error) {
	expireAt, err := expiryFor(day)
	if err != nil {
		return models.QuotaRecord{}, false, err
	}

	res, err := incrementScript.Run(ctx, s.client, []string{key(identity)}, day, n, limit, expireAt).Int64Slice()
	if err != nil {
		return models.QuotaRecord{}, false, fmt.Errorf("quota increment error: %w", err)
	}
	if len(res) != 2 {
		return models.QuotaRecord{}, false, fmt.Errorf("unexpected quota script reply %v", res)
	}

	record := models.QuotaRecord{Identity: identity, Count: int(res[1]), Day: day}
	return record, res[0] == 1, nil
}

// Sweep is a no-op: keys carry their own expiry.
func (s *RedisStore) Sweep(ctx context.Context, today string) (int, error) {
	return 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close leaves the shared client open; its owner closes it.
func (s *RedisStore) Close() error { return nil }
