package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"
)

const (
	scanBatchSize = 100

	// generationTTL bounds how long an idle owner's counter lives. A counter
	// that expires reads as zero, which only makes in-flight fills skip.
	generationTTL = 24 * time.Hour
)

// KEYS[1] generation counter, KEYS[2] list key.
// ARGV[1] expected generation, ARGV[2] value, ARGV[3] ttl seconds.
var setIfGenerationScript = rueidis.NewLuaScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'EX', ARGV[3])
return 1
`)

type RedisBackend struct {
	client rueidis.Client
}

func NewRedisBackend(client rueidis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(key).Build()
	value, err := r.client.Do(ctx, cmd).AsBytes()

	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, err
	}

	return value, nil
}

func (r *RedisBackend) SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	stored, err := setIfGenerationScript.Exec(ctx, r.client,
		[]string{genKey, key},
		[]string{strconv.FormatInt(gen, 10), string(value), strconv.FormatInt(seconds, 10)},
	).AsInt64()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (r *RedisBackend) Generation(ctx context.Context, genKey string) (int64, error) {
	cmd := r.client.B().Get().Key(genKey).Build()
	gen, err := r.client.Do(ctx, cmd).AsInt64()

	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, err
	}

	return gen, nil
}

func (r *RedisBackend) IncrGeneration(ctx context.Context, genKey string) (int64, error) {
	results := r.client.DoMulti(ctx,
		r.client.B().Incr().Key(genKey).Build(),
		r.client.B().Expire().Key(genKey).Seconds(int64(generationTTL/time.Second)).Build(),
	)

	gen, err := results[0].AsInt64()
	if err != nil {
		return 0, err
	}
	if err := results[1].Error(); err != nil {
		return gen, err
	}
	return gen, nil
}

// DeletePrefix walks the keyspace with SCAN rather than KEYS so a large
// keyspace does not stall the server.
func (r *RedisBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		scanCmd := r.client.B().Scan().Cursor(cursor).Match(prefix + "*").Count(scanBatchSize).Build()
		entry, err := r.client.Do(ctx, scanCmd).AsScanEntry()
		if err != nil {
			return deleted, err
		}

		if len(entry.Elements) > 0 {
			delCmd := r.client.B().Del().Key(entry.Elements...).Build()
			n, err := r.client.Do(ctx, delCmd).AsInt64()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return deleted, nil
		}
	}
}
