package favourites

import (
	"context"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "parkedup:favourites:"

// RedisStore keeps each user's favourites in a Redis set
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: defaultKeyPrefix}
}

// OpenRedis connects to the Redis server at url and checks it responds
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(user string) string {
	return s.prefix + user
}

func (s *RedisStore) Add(ctx context.Context, user, number string) error {
	if err := s.client.SAdd(ctx, s.key(user), number).Err(); err != nil {
		return fmt.Errorf("adding favourite: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, user, number string) error {
	if err := s.client.SRem(ctx, s.key(user), number).Err(); err != nil {
		return fmt.Errorf("removing favourite: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, user, number string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(user), number).Result()
	if err != nil {
		return false, fmt.Errorf("checking favourite: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) List(ctx context.Context, user string) ([]string, error) {
	numbers, err := s.client.SMembers(ctx, s.key(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing favourites: %w", err)
	}
	slices.Sort(numbers)
	return numbers, nil
}

func (s *RedisStore) Clear(ctx context.Context, user string) error {
	if err := s.client.Del(ctx, s.key(user)).Err(); err != nil {
		return fmt.Errorf("clearing favourites: %w", err)
	}
	return nil
}
