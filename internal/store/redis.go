package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores keys as plain string values under a namespace. Children
// are discovered with SCAN, so List is O(keys under prefix).
type Redis struct {
	client    redis.UniversalClient
	namespace string
	timeout   time.Duration
}

// NewRedis wraps an existing client. namespace is prepended to every key.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{client: client, namespace: Join(namespace), timeout: 2 * time.Second}
}

// DialRedis connects and pings the server.
func DialRedis(addr, namespace string) (*Redis, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	r := NewRedis(c, namespace)
	ctx, cancel := r.ctx()
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, err
	}
	return r, nil
}

func (r *Redis) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *Redis) key(k string) string { return Join(r.namespace, k) }

// Close releases the client.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Read(key string) ([]byte, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	return b, err
}

func (r *Redis) Write(key string, data []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, r.key(key), data, 0).Err()
}

func (r *Redis) scan(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := r.client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

func (r *Redis) List(prefix string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	base := r.key(prefix)
	pattern := "*"
	if base != "" {
		pattern = base + "/*"
		base += "/"
	}
	keys, err := r.scan(ctx, pattern)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, base)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			seen[rest] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Redis) Exists(key string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	k := r.key(key)
	n, err := r.client.Exists(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	children, err := r.scan(ctx, k+"/*")
	return len(children) > 0, err
}

func (r *Redis) RemoveAll(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	k := r.key(key)
	keys, err := r.scan(ctx, k+"/*")
	if err != nil {
		return err
	}
	keys = append(keys, k)
	return r.client.Del(ctx, keys...).Err()
}

var _ Store = (*Redis)(nil)
