package signature

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strconv"

	"ltiprovider/core"
	"ltiprovider/pkg/oauth"

	"github.com/fox-one/pkg/logger"
)

const (
	maxKeyLength   = 32
	maxNonceLength = 64

	contentTypeForm = "application/x-www-form-urlencoded"
)

var (
	errInvalidConsumerKey = errors.New("invalid consumer key")
	errInvalidNonce       = errors.New("invalid nonce")
	errInvalidTimestamp   = errors.New("invalid timestamp")
	errInvalidVersion     = errors.New("invalid oauth version")
)

type validator struct {
	consumers core.ConsumerStore
}

// New new lti launch signature validator
func New(consumers core.ConsumerStore) core.SignatureValidator {
	return &validator{
		consumers: consumers,
	}
}

// Verify reports whether the request carries a valid oauth1 signature from a
// registered consumer. Parameters are read from the url query and, for form
// posts, from the body.
//
// Nonces and timestamps are not checked for replay.
func (v *validator) Verify(ctx context.Context, method, fullURL, contentType string, body []byte) bool {
	log := logger.FromContext(ctx)

	params, err := formParams(contentType, body)
	if err != nil {
		log.WithError(err).Infoln("lti launch: parse form body")
		return false
	}

	if err := v.verify(ctx, method, fullURL, params); err != nil {
		log.WithError(err).WithField("oauth_consumer_key", params.Get(oauth.ParamConsumerKey)).
			Infoln("lti launch: signature rejected")
		return false
	}

	return true
}

func (v *validator) verify(ctx context.Context, method, fullURL string, params url.Values) error {
	u, err := url.Parse(fullURL)
	if err != nil {
		return err
	}

	all := u.Query()
	for k, vs := range params {
		all[k] = append(all[k], vs...)
	}

	for _, name := range []string{
		oauth.ParamConsumerKey,
		oauth.ParamSignature,
		oauth.ParamSignatureMethod,
		oauth.ParamTimestamp,
		oauth.ParamNonce,
		oauth.ParamVersion,
	} {
		if len(all[name]) > 1 {
			return fmt.Errorf("duplicate oauth parameter %s", name)
		}
	}

	if key := all.Get(oauth.ParamConsumerKey); !CheckClientKey(key) {
		return errInvalidConsumerKey
	}

	if nonce := all.Get(oauth.ParamNonce); !CheckNonce(nonce) {
		return errInvalidNonce
	}

	if _, err := strconv.ParseUint(all.Get(oauth.ParamTimestamp), 10, 64); err != nil {
		return errInvalidTimestamp
	}

	if version, ok := all[oauth.ParamVersion]; ok && version[0] != oauth.Version {
		return errInvalidVersion
	}

	if _, err := oauth.Signer(all.Get(oauth.ParamSignatureMethod), ""); err != nil {
		return err
	}

	secret, err := v.consumers.SecretFor(ctx, all.Get(oauth.ParamConsumerKey))
	if err != nil {
		if !errors.Is(err, core.ErrConsumerNotFound) {
			logger.FromContext(ctx).WithError(err).Errorln("lti launch: load consumer secret")
		}
		return err
	}

	// all already holds the query parameters
	u.RawQuery = ""
	return oauth.Verify(method, u.String(), all, secret)
}

// CheckClientKey consumer keys are non-empty and at most 32 characters
func CheckClientKey(key string) bool {
	return key != "" && len(key) <= maxKeyLength
}

// CheckNonce nonces are non-empty and at most 64 characters
func CheckNonce(nonce string) bool {
	return nonce != "" && len(nonce) <= maxNonceLength
}

func formParams(contentType string, body []byte) (url.Values, error) {
	if contentType == "" || len(body) == 0 {
		return url.Values{}, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}

	if mediaType != contentTypeForm {
		return url.Values{}, nil
	}

	return url.ParseQuery(string(body))
}
