package session

import (
	"context"
	"time"

	"ltiprovider/core"

	"github.com/bluele/gcache"
)

const tokenTTL = time.Minute

type cacheSession struct {
	core.Session
	tokens gcache.Cache
}

func (s *cacheSession) Login(ctx context.Context, accessToken string) (*core.User, error) {
	if v, err := s.tokens.Get(accessToken); err == nil {
		return v.(*core.User), nil
	}

	user, err := s.Session.Login(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	_ = s.tokens.SetWithExpire(accessToken, user, tokenTTL)
	return user, nil
}
