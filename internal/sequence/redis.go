// Package sequence содержит счётчики номеров счетов вне основной БД.
package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// incrementer часть redis.Client, нужная счётчику.
type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisSequencer выдаёт номера через INCR: команда атомарна на сервере,
// поэтому параллельные вызовы за один год не получают одинаковых значений.
type RedisSequencer struct {
	client incrementer
	prefix string
}

func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client, prefix: "invoice:seq:"}
}

// Next возвращает следующее значение счётчика года. Ключ на каждый год свой,
// так что нумерация начинается заново с 1.
func (s *RedisSequencer) Next(ctx context.Context, year int) (int64, error) {
	value, err := s.client.Incr(ctx, fmt.Sprintf("%s%02d", s.prefix, year%100)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis sequencer: incr %w", err)
	}
	return value, nil
}

// Connect создаёт клиента и проверяет соединение.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %w", err)
	}
	return client, nil
}
