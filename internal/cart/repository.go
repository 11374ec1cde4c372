package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Repository persists carts between requests, keyed by owner (user id or
// guest session id).
type Repository interface {
	Get(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, owner string, c *Cart) error
	Delete(ctx context.Context, owner string) error
}

// RedisRepository stores carts as JSON values that expire after ttl of
// inactivity.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func cartKey(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}

// Get returns the stored cart, or an empty one if none exists.
func (r *RedisRepository) Get(ctx context.Context, owner string) (*Cart, error) {
	data, err := r.client.Get(ctx, cartKey(owner)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Cart{}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func (r *RedisRepository) Save(ctx context.Context, owner string, c *Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, owner)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(owner), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, owner string) error {
	if err := r.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MemoryRepository keeps carts in process. Used in development and tests.
type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string][]byte)}
}

func (m *MemoryRepository) Get(_ context.Context, owner string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.carts[owner]
	if !ok {
		return &Cart{}, nil
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func (m *MemoryRepository) Save(_ context.Context, owner string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.IsEmpty() {
		delete(m.carts, owner)
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	m.carts[owner] = data
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, owner)
	return nil
}
