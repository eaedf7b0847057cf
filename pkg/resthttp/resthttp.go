package resthttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout used when no timeout is configured
	DefaultTimeout = 10 * time.Second

	headerKeyRequestID = "X-Request-Id"
)

// New resty client bounded by timeout. Redirects are not followed, the
// outcome service url is taken as given by the consumer and a 3xx reply is
// returned as the response.
func New(timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(lastResponsePolicy)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}

	return client
}

var lastResponsePolicy = resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
})

// WithRequestID resty request with request id
func WithRequestID(ctx context.Context, client *resty.Client, requestID string) *resty.Request {
	r := client.R().SetContext(ctx)
	if requestID != "" {
		r.SetHeader(headerKeyRequestID, requestID)
	}

	return r
}

// IsTimeout reports whether err was caused by a deadline
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
