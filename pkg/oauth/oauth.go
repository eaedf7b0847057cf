// Package oauth implements one-legged OAuth 1.0a (RFC 5849) request signing
// and verification as used by LTI 1.1. The digest itself is computed by the
// signers of github.com/dghubble/oauth1.
package oauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	ParamConsumerKey     = "oauth_consumer_key"
	ParamSignature       = "oauth_signature"
	ParamSignatureMethod = "oauth_signature_method"
	ParamTimestamp       = "oauth_timestamp"
	ParamNonce           = "oauth_nonce"
	ParamVersion         = "oauth_version"
	ParamBodyHash        = "oauth_body_hash"
	ParamRealm           = "realm"

	MethodHMACSHA1   = "HMAC-SHA1"
	MethodHMACSHA256 = "HMAC-SHA256"

	Version = "1.0"

	authorizationPrefix = "OAuth "
)

var (
	ErrUnsupportedMethod = errors.New("oauth: unsupported signature method")
	ErrMissingSignature  = errors.New("oauth: missing signature")
	ErrSignatureMismatch = errors.New("oauth: signature mismatch")
)

// Signer returns the signer for the named signature method
func Signer(method, consumerSecret string) (oauth1.Signer, error) {
	switch method {
	case MethodHMACSHA1:
		return &oauth1.HMACSigner{ConsumerSecret: consumerSecret}, nil
	case MethodHMACSHA256:
		return &oauth1.HMAC256Signer{ConsumerSecret: consumerSecret}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
}

// SignatureBase builds the signature base string of a request. Query
// parameters of rawURL are merged with params; oauth_signature and realm are
// left out.
func SignatureBase(method, rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	all := url.Values{}
	for k, vs := range u.Query() {
		all[k] = append(all[k], vs...)
	}
	for k, vs := range params {
		all[k] = append(all[k], vs...)
	}

	parts := []string{
		strings.ToUpper(method),
		oauth1.PercentEncode(baseURI(u)),
		oauth1.PercentEncode(normalizedParameters(all)),
	}

	return strings.Join(parts, "&"), nil
}

// Sign computes the signature of a request with the method named in params
func Sign(method, rawURL string, params url.Values, consumerSecret string) (string, error) {
	signer, err := Signer(params.Get(ParamSignatureMethod), consumerSecret)
	if err != nil {
		return "", err
	}

	base, err := SignatureBase(method, rawURL, params)
	if err != nil {
		return "", err
	}

	// one-legged: there is no token secret
	return signer.Sign("", base)
}

// Verify checks the oauth_signature carried by params
func Verify(method, rawURL string, params url.Values, consumerSecret string) error {
	signature := params.Get(ParamSignature)
	if signature == "" {
		return ErrMissingSignature
	}

	expected, err := Sign(method, rawURL, params, consumerSecret)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrSignatureMismatch
	}

	return nil
}

// AuthorizationHeader signs a request with HMAC-SHA1 and returns the value
// of its Authorization header. When withBodyHash is set the oauth_body_hash
// of body is signed as well.
func AuthorizationHeader(method, rawURL, consumerKey, consumerSecret string, body []byte, withBodyHash bool) (string, error) {
	params := url.Values{}
	params.Set(ParamConsumerKey, consumerKey)
	params.Set(ParamSignatureMethod, MethodHMACSHA1)
	params.Set(ParamTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	params.Set(ParamNonce, oauth1.HexNoncer{}.Nonce())
	params.Set(ParamVersion, Version)
	if withBodyHash {
		params.Set(ParamBodyHash, BodyHash(body))
	}

	signature, err := Sign(method, rawURL, params, consumerSecret)
	if err != nil {
		return "", err
	}
	params.Set(ParamSignature, signature)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf(`%s="%s"`, oauth1.PercentEncode(k), oauth1.PercentEncode(params.Get(k)))
	}

	return authorizationPrefix + strings.Join(pairs, ", "), nil
}

// ParseAuthorizationHeader extracts the oauth parameters of an Authorization
// header value
func ParseAuthorizationHeader(header string) (url.Values, error) {
	if !strings.HasPrefix(header, authorizationPrefix) {
		return nil, errors.New("oauth: not an OAuth authorization header")
	}

	params := url.Values{}
	for _, pair := range strings.Split(strings.TrimPrefix(header, authorizationPrefix), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("oauth: malformed parameter %q", pair)
		}

		key, err := url.PathUnescape(k)
		if err != nil {
			return nil, err
		}

		value, err := url.PathUnescape(strings.Trim(v, `"`))
		if err != nil {
			return nil, err
		}

		if key != ParamRealm {
			params.Add(key, value)
		}
	}

	return params, nil
}

// BodyHash the oauth_body_hash of a request body
func BodyHash(body []byte) string {
	sum := sha1.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	if port := u.Port(); port != "" &&
		!(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return scheme + "://" + host + path
}

func normalizedParameters(params url.Values) string {
	type pair struct{ k, v string }

	var pairs []pair
	for k, vs := range params {
		if k == ParamSignature || k == ParamRealm {
			continue
		}

		for _, v := range vs {
			pairs = append(pairs, pair{oauth1.PercentEncode(k), oauth1.PercentEncode(v)})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	encoded := make([]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = p.k + "=" + p.v
	}

	return strings.Join(encoded, "&")
}
