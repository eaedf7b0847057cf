package auth

import (
	"net/http"
	"strings"

	"ltiprovider/core"
	"ltiprovider/handler/request"

	"github.com/fox-one/pkg/logger"
)

const sessionCookie = "lti_session"

// HandleAuthentication resolves the host platform user from a bearer token
// or the session cookie. Requests without a valid session pass through
// anonymously.
func HandleAuthentication(session core.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.FromContext(ctx)

			accessToken := getAccessToken(r)
			if accessToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := session.Login(ctx, accessToken)
			if err != nil {
				next.ServeHTTP(w, r)
				log.WithError(err).Debugln("parse access token error:", err)
				return
			}

			ctx = logger.WithContext(ctx, log.WithField("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(request.NewContext(ctx).WithUser(user)))
		}

		return http.HandlerFunc(fn)
	}
}

func getAccessToken(r *http.Request) string {
	if s := r.Header.Get("Authorization"); strings.HasPrefix(s, "Bearer ") {
		return strings.TrimPrefix(s, "Bearer ")
	}

	// browsers following a consumer launch only carry the cookie
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}

	return ""
}
