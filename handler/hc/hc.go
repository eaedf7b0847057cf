package hc

import (
	"net/http"
	"time"

	"ltiprovider/handler/render"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/twitchtv/twirp"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// Handle handle hc request, db is pinged on every check
func Handle(version string, db Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/", handle(version, db))
	return r
}

func handle(version string, db Pinger) http.HandlerFunc {
	b := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(); err != nil {
				render.Error(w, twirp.NewError(twirp.Unavailable, "database unreachable"))
				return
			}
		}

		uptime := time.Since(b).Truncate(time.Millisecond)
		render.JSON(w, render.H{
			"uptime":  uptime.String(),
			"version": version,
		})
	}
}
