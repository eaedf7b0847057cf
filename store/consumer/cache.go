package consumer

import (
	"context"
	"fmt"
	"time"

	"ltiprovider/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// Cache wraps a consumer store with an lru cache. Misses are not cached, a
// consumer provisioned after a failed lookup is found on the next launch.
func Cache(store core.ConsumerStore, capacity int, exp time.Duration) core.ConsumerStore {
	builder := gcache.New(capacity).LRU()
	if exp > 0 {
		builder = builder.Expiration(exp)
	}

	return &cacheConsumerStore{
		ConsumerStore: store,
		cache:         builder.Build(),
		sf:            &singleflight.Group{},
	}
}

type cacheConsumerStore struct {
	core.ConsumerStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheConsumerStore) Create(ctx context.Context, consumer *core.Consumer) error {
	if err := s.ConsumerStore.Create(ctx, consumer); err != nil {
		return err
	}

	s.cacheConsumer(consumer)
	return nil
}

func (s *cacheConsumerStore) Find(ctx context.Context, key string) (*core.Consumer, error) {
	if v, err := s.cache.Get(s.consumerKey(key)); err == nil {
		if consumer, ok := v.(*core.Consumer); ok {
			return consumer, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		consumer, err := s.ConsumerStore.Find(ctx, key)
		if err != nil {
			return nil, err
		}

		s.cacheConsumer(consumer)
		return consumer, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.Consumer), nil
}

func (s *cacheConsumerStore) SecretFor(ctx context.Context, key string) (string, error) {
	consumer, err := s.Find(ctx, key)
	if err != nil {
		return "", err
	}

	return consumer.Secret, nil
}

func (s *cacheConsumerStore) cacheConsumer(consumer *core.Consumer) {
	_ = s.cache.Set(s.consumerKey(consumer.Key), consumer)
}

func (s *cacheConsumerStore) consumerKey(key string) string {
	return fmt.Sprintf("consumer:key:%s", key)
}
