package consumer

import (
	"context"

	"ltiprovider/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type consumerStore struct {
	db *db.DB
}

// New new consumer store
func New(db *db.DB) core.ConsumerStore {
	return &consumerStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Consumer{})

		if err := tx.AutoMigrate(core.Consumer{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_consumers_key", "consumer_key").Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_consumers_secret", "consumer_secret").Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *consumerStore) Create(ctx context.Context, consumer *core.Consumer) error {
	return s.db.Update().Create(consumer).Error
}

func (s *consumerStore) Find(ctx context.Context, key string) (*core.Consumer, error) {
	var consumer core.Consumer
	if err := s.db.View().Where("consumer_key = ?", key).First(&consumer).Error; err != nil {
		if store.IsErrNotFound(err) {
			return nil, core.ErrConsumerNotFound
		}

		return nil, err
	}

	return &consumer, nil
}

func (s *consumerStore) List(ctx context.Context) ([]*core.Consumer, error) {
	var consumers []*core.Consumer
	if err := s.db.View().Order("id").Find(&consumers).Error; err != nil {
		return nil, err
	}

	return consumers, nil
}

func (s *consumerStore) SecretFor(ctx context.Context, key string) (string, error) {
	consumer, err := s.Find(ctx, key)
	if err != nil {
		return "", err
	}

	return consumer.Secret, nil
}
