package flags

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisFlagKey = "intentd:flags:canary_percent"

// casScript swaps the flag only when the stored value still matches the
// expected one, making controller writes race-safe across replicas.
var casScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then current = ARGV[3] end
if current ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// RedisStore shares the flag across processes through Redis.
type RedisStore struct {
	client redis.UniversalClient
	// initial is reported (and assumed by CAS) while the key is unset.
	initial int
}

func NewRedisStore(client redis.UniversalClient, initial int) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if err := ValidatePercent(initial); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, initial: initial}, nil
}

func (s *RedisStore) Get(ctx context.Context) (int, error) {
	raw, err := s.client.Get(ctx, redisFlagKey).Result()
	if errors.Is(err, redis.Nil) {
		return s.initial, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read canary flag: %w", err)
	}
	percent, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt canary flag value %q: %w", raw, err)
	}
	return percent, nil
}

func (s *RedisStore) Set(ctx context.Context, percent int) error {
	if err := ValidatePercent(percent); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisFlagKey, strconv.Itoa(percent), 0).Err(); err != nil {
		return fmt.Errorf("failed to write canary flag: %w", err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, old, new int) (bool, error) {
	if err := ValidatePercent(new); err != nil {
		return false, err
	}
	res, err := casScript.Run(ctx, s.client, []string{redisFlagKey},
		strconv.Itoa(old), strconv.Itoa(new), strconv.Itoa(s.initial)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to swap canary flag: %w", err)
	}
	return res == 1, nil
}
