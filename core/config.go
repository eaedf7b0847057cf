package core

import (
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/spf13/cast"
)

// Config lti provider config
type Config struct {
	App        App           `json:"app"`
	DB         db.Config     `json:"db"`
	Session    SessionConfig `json:"session"`
	Outcome    Outcome       `json:"outcome"`
	Dispatcher Dispatcher    `json:"dispatcher"`
	Cache      Cache         `json:"cache"`
}

// App app config
type App struct {
	EnableLtiProvider bool `json:"enable_lti_provider"`
	// BaseURL overrides scheme and host when rebuilding the launch url for
	// signature checks, e.g. behind a tls terminating proxy
	BaseURL string `json:"base_url"`
}

// SessionConfig host platform session config
type SessionConfig struct {
	JwtSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

// Outcome outcome transport config
type Outcome struct {
	Timeout   Duration `json:"timeout"`
	BodyHash  bool     `json:"body_hash"`
	UserAgent string   `json:"user_agent"`
}

// Dispatcher score dispatcher worker config
type Dispatcher struct {
	Interval    Duration `json:"interval"`
	Batch       int      `json:"batch" valid:"required"`
	Capacity    int64    `json:"capacity" valid:"required"`
	MaxAttempts int      `json:"max_attempts" valid:"required"`
}

// Cache consumer cache config
type Cache struct {
	ConsumerCapacity int      `json:"consumer_capacity"`
	ConsumerTTL      Duration `json:"consumer_ttl"`
}

// Duration config duration, accepts "10s" style strings and nanoseconds
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	dur, err := cast.ToDurationE(v)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}
