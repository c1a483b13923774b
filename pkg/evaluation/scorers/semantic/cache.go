package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 向量缓存
type Cache interface {
	// Get 读取缓存，未命中时 ok 为 false
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)

	// Set 写入缓存
	Set(ctx context.Context, key string, vec []float32) error
}

// CacheKey 由模型名和文本内容生成缓存键
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache 进程内向量缓存
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

// Get 读取缓存
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[key]
	return vec, ok, nil
}

// Set 写入缓存
func (c *MemoryCache) Set(_ context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[key] = vec
	return nil
}

// Len 返回缓存条目数
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// RedisCache Redis 向量缓存
//
// 向量以小端 float32 二进制存储。
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
//
// 参数:
//   - url: Redis 连接串，如 redis://localhost:6379/0
//   - ttl: 条目过期时间，0 表示不过期
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "qaeval:embedding:",
		ttl:    ttl,
	}, nil
}

// Get 读取缓存
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding: %w", err)
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set 写入缓存
func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
