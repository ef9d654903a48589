package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository persists cart snapshots.
type Repository interface {
	Get(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	// Delete removes a cart. Unknown ids return ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// RedisRepository stores each cart as a JSON document that expires after TTL
// of inactivity.
type RedisRepository struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (r RedisRepository) key(id string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "cart"
	}
	return prefix + ":" + id
}

func (r RedisRepository) ttl() time.Duration {
	if r.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return r.TTL
}

// Get loads a cart or returns ErrNotFound.
func (r RedisRepository) Get(ctx context.Context, id string) (*Cart, error) {
	data, err := r.R.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", id, err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

// Save writes the cart and refreshes its expiry.
func (r RedisRepository) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.R.Set(ctx, r.key(c.ID), data, r.ttl()).Err()
}

// Delete drops the cart document.
func (r RedisRepository) Delete(ctx context.Context, id string) error {
	n, err := r.R.Del(ctx, r.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryRepository keeps carts in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*Cart)}
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.clone(), nil
}

func (m *MemoryRepository) Save(_ context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts == nil {
		m.carts = make(map[string]*Cart)
	}
	m.carts[c.ID] = c.clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return ErrNotFound
	}
	delete(m.carts, id)
	return nil
}
