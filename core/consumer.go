package core

import (
	"context"
	"time"
)

// Consumer a registered lti tool consumer
type Consumer struct {
	ID        int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Name      string    `gorm:"column:consumer_name" sql:"size:255" json:"name,omitempty"`
	Key       string    `gorm:"column:consumer_key" sql:"size:32;not null" json:"key,omitempty"`
	Secret    string    `gorm:"column:consumer_secret" sql:"size:32;not null" json:"-"`
}

// TableName gorm table name
func (Consumer) TableName() string {
	return "lti_consumers"
}

// ConsumerStore consumer registry
type ConsumerStore interface {
	Create(ctx context.Context, consumer *Consumer) error
	Find(ctx context.Context, key string) (*Consumer, error)
	List(ctx context.Context) ([]*Consumer, error)
	// SecretFor returns ErrConsumerNotFound if no consumer owns the key
	SecretFor(ctx context.Context, key string) (string, error)
}

// SignatureValidator verifies oauth1 signed launch requests
type SignatureValidator interface {
	Verify(ctx context.Context, method, fullURL, contentType string, body []byte) bool
}
