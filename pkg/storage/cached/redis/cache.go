// Copyright 2022 The marten Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"

	netutil "github.com/marten-im/marten/pkg/util/net"
)

// Type is redis cache type identifier.
const Type = "redis"

// Config contains Redis cache configuration.
type Config struct {
	SRV          string        `fig:"srv"`
	Addresses    []string      `fig:"addresses"`
	Username     string        `fig:"username"`
	Password     string        `fig:"password"`
	DB           int           `fig:"db"`
	DialTimeout  time.Duration `fig:"dial_timeout" default:"3s"`
	ReadTimeout  time.Duration `fig:"read_timeout" default:"5s"`
	WriteTimeout time.Duration `fig:"write_timeout" default:"5s"`
	TTL          time.Duration `fig:"ttl" default:"24h"`
}

// Cache is a Redis cache implementation.
//
// When multiple addresses are configured each namespace is consistently
// assigned to one client.
type Cache struct {
	cfg     Config
	ttl     time.Duration
	clients []*redis.Client
}

// New creates and returns an initialized Redis Cache instance.
func New(cfg Config) (*Cache, error) {
	if len(cfg.Addresses) == 0 && len(cfg.SRV) == 0 {
		return nil, errors.New("rediscache: no address or SRV record configured")
	}
	return &Cache{cfg: cfg, ttl: cfg.TTL}, nil
}

// Type satisfies Cache interface.
func (c *Cache) Type() string { return Type }

// Get satisfies Cache interface.
func (c *Cache) Get(ctx context.Context, ns, key string) ([]byte, error) {
	cl := c.pickClient(ns)
	val, err := cl.HGet(ctx, ns, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}

// Put satisfies Cache interface.
func (c *Cache) Put(ctx context.Context, ns, key string, val []byte) error {
	cl := c.pickClient(ns)
	if err := cl.HSet(ctx, ns, key, val).Err(); err != nil {
		return err
	}
	return cl.Expire(ctx, ns, c.ttl).Err()
}

// Del satisfies Cache interface.
func (c *Cache) Del(ctx context.Context, ns string, keys ...string) error {
	cl := c.pickClient(ns)
	return cl.HDel(ctx, ns, keys...).Err()
}

// DelNS satisfies Cache interface.
func (c *Cache) DelNS(ctx context.Context, ns string) error {
	cl := c.pickClient(ns)
	return cl.Del(ctx, ns).Err()
}

// Start satisfies Cache interface.
func (c *Cache) Start(ctx context.Context) error {
	addr := c.cfg.Addresses
	if len(addr) == 0 {
		var err error
		addr, err = netutil.NewSRVResolver().Resolve(ctx, "redis", "tcp", c.cfg.SRV)
		if err != nil {
			return err
		}
	}
	for _, a := range addr {
		cl := redis.NewClient(&redis.Options{
			Addr:         a,
			Username:     c.cfg.Username,
			Password:     c.cfg.Password,
			DB:           c.cfg.DB,
			DialTimeout:  c.cfg.DialTimeout,
			ReadTimeout:  c.cfg.ReadTimeout,
			WriteTimeout: c.cfg.WriteTimeout,
		})
		if err := cl.Ping(ctx).Err(); err != nil {
			return err
		}
		c.clients = append(c.clients, cl)
	}
	return nil
}

// Stop satisfies Cache interface.
func (c *Cache) Stop(_ context.Context) error {
	for _, cl := range c.clients {
		if err := cl.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) pickClient(ns string) *redis.Client {
	if len(c.clients) == 1 {
		return c.clients[0]
	}
	cs := xxhash.Sum64String(ns)
	idx := jumpHash(cs, len(c.clients))
	return c.clients[idx]
}

// jumpHash consistently maps key to a bucket in [0, buckets).
func jumpHash(key uint64, buckets int) int {
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(b)
}
