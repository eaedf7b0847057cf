package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ltiprovider/core"

	"github.com/bluele/gcache"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/sync/singleflight"
)

var errInvalidSubject = errors.New("session: token subject is not a user id")

// Claims host platform session token payload, subject is the user id
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// New new session resolving HS256 tokens issued by the host platform
func New(cfg core.SessionConfig, capacity int) core.Session {
	var s core.Session = &session{
		secret: []byte(cfg.JwtSecret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		sf:     &singleflight.Group{},
	}

	if capacity > 0 {
		s = &cacheSession{
			Session: s,
			tokens:  gcache.New(capacity).LRU().Build(),
		}
	}

	return s
}

type session struct {
	secret []byte
	issuer string
	parser *jwt.Parser
	sf     *singleflight.Group
}

func (s *session) Login(ctx context.Context, accessToken string) (*core.User, error) {
	user, err, _ := s.sf.Do(accessToken, func() (interface{}, error) {
		var claims Claims
		if _, err := s.parser.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}); err != nil {
			return nil, err
		}

		if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
			return nil, errors.New("session: invalid issuer")
		}

		id, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
		if err != nil || id <= 0 {
			return nil, errInvalidSubject
		}

		return &core.User{ID: id, Username: claims.Username}, nil
	})

	if err != nil {
		return nil, err
	}

	return user.(*core.User), nil
}

// Issue signs a session token for user, used by the cli to craft test launches
func Issue(cfg core.SessionConfig, user *core.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JwtSecret))
}
