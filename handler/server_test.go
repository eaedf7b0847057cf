package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ltiprovider/core"
	"ltiprovider/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

type acceptAll struct{}

func (acceptAll) Verify(context.Context, string, string, string, []byte) bool { return true }

type outcomeStore struct{ calls int }

func (s *outcomeStore) RegisterIfGraded(ctx context.Context, params *core.LaunchParams, user *core.User) error {
	s.calls++
	return nil
}

func (s *outcomeStore) FindOutcomeService(ctx context.Context, id int64) (*core.OutcomeService, error) {
	return nil, errors.New("not implemented")
}

func (s *outcomeStore) FindAssignments(ctx context.Context, userID int64, courseKey, usageKey string) ([]*core.GradedAssignment, error) {
	return nil, nil
}

func newServer(db pinger, outcomes core.OutcomeStore) (http.Handler, *core.Config) {
	cfg := &core.Config{
		App:     core.App{EnableLtiProvider: true},
		Session: core.SessionConfig{JwtSecret: "secret", Issuer: "lms"},
	}

	s := New(cfg, "test", db, session.New(cfg.Session, 0), acceptAll{}, outcomes, nil)
	return s.Handler(), cfg
}

func TestServerHealthCheck(t *testing.T) {
	h, _ := newServer(pinger{}, &outcomeStore{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	h, _ = newServer(pinger{err: errors.New("refused")}, &outcomeStore{})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hc", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerNotFound(t *testing.T) {
	h, _ := newServer(pinger{}, &outcomeStore{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerLaunchSession(t *testing.T) {
	outcomes := &outcomeStore{}
	h, cfg := newServer(pinger{}, outcomes)

	form := url.Values{
		"roles":                  {"Student"},
		"context_id":             {"ctx"},
		"oauth_consumer_key":     {"client_key"},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {"1437060920"},
		"oauth_nonce":            {"nonce"},
		"oauth_version":          {"1.0"},
		"oauth_signature":        {"signature"},
	}

	launch := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/lti/courses/course-v1:org+course+run/block-v1:org+course+run+type@problem+block@3", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, launch(""))
	assert.Equal(t, http.StatusUnauthorized, launch("garbage"))
	assert.Equal(t, 0, outcomes.calls)

	token, err := session.Issue(cfg.Session, &core.User{ID: 42, Username: "student"}, time.Minute)
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, launch(token))
	assert.Equal(t, 1, outcomes.calls)
}
