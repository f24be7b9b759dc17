//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"persona/internal/cas"
	"persona/internal/registry"
	"persona/pkg/testutil/containers"
)

type PointerCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *registry.PointerCache
}

func TestPointerCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PointerCacheSuite))
}

func (s *PointerCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = registry.NewPointerCache(s.redis.Client, time.Minute)
}

func (s *PointerCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *PointerCacheSuite) TestMissThenHit() {
	ctx := context.Background()

	_, ok := s.cache.Get(ctx, "0xowner")
	s.False(ok)

	s.cache.Set(ctx, "0xowner", cas.Address("QmCached"))

	addr, ok := s.cache.Get(ctx, "0xowner")
	s.True(ok)
	s.Equal(cas.Address("QmCached"), addr)
}

func (s *PointerCacheSuite) TestInvalidate() {
	ctx := context.Background()

	s.cache.Set(ctx, "0xowner", cas.Address("QmCached"))
	s.cache.Invalidate(ctx, "0xowner")

	_, ok := s.cache.Get(ctx, "0xowner")
	s.False(ok)
}

func (s *PointerCacheSuite) TestExpiry() {
	ctx := context.Background()
	short := registry.NewPointerCache(s.redis.Client, 50*time.Millisecond)

	short.Set(ctx, "0xowner", cas.Address("QmCached"))
	time.Sleep(100 * time.Millisecond)

	_, ok := short.Get(ctx, "0xowner")
	s.False(ok)
}
