// Package linecache caches newline-offset tables for recently displayed
// programs, keyed by a digest of the program bytes. It is purely an
// ambient acceleration for the host's error renderer: the evaluator
// itself always computes line numbers on demand from scratch, per its own
// invariant, and never consults this cache.
package linecache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config controls the Redis connection backing the cache.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultConfig targets a local Redis instance with a one-hour TTL.
func DefaultConfig() Config {
	return Config{Address: "localhost:6379", TTL: time.Hour}
}

// Cache stores newline-offset tables for program byte slices.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects a Cache to Redis using cfg.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("linecache: connect: %w", err)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Digest returns the cache key for program's bytes.
func Digest(program []byte) string {
	sum := sha256.Sum256(program)
	return "qrt:linecache:" + hex.EncodeToString(sum[:])
}

// Offsets returns the byte offset of every newline in program, computing
// and caching it on a miss.
func (c *Cache) Offsets(ctx context.Context, program []byte) ([]int, error) {
	key := Digest(program)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		return decodeOffsets(raw), nil
	} else if err != redis.Nil {
		return nil, fmt.Errorf("linecache: get: %w", err)
	}

	offsets := computeOffsets(program)
	if err := c.rdb.Set(ctx, key, encodeOffsets(offsets), c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("linecache: set: %w", err)
	}
	return offsets, nil
}

// LineAt returns the 0-indexed line number containing byte position pos,
// given program's precomputed newline offsets.
func LineAt(offsets []int, pos int) int {
	line := 0
	for _, off := range offsets {
		if off >= pos {
			break
		}
		line++
	}
	return line
}

func computeOffsets(program []byte) []int {
	var offsets []int
	for i, b := range program {
		if b == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

func encodeOffsets(offsets []int) []byte {
	buf := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(off))
	}
	return buf
}

func decodeOffsets(buf []byte) []int {
	n := len(buf) / 8
	offsets := make([]int, n)
	for i := 0; i < n; i++ {
		offsets[i] = int(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return offsets
}
