package handler

import (
	"net/http"

	"ltiprovider/core"
	"ltiprovider/handler/auth"
	"ltiprovider/handler/events"
	"ltiprovider/handler/hc"
	"ltiprovider/handler/launch"
	"ltiprovider/handler/render"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
	"github.com/twitchtv/twirp"
)

// Server server
type Server struct {
	cfg       *core.Config
	version   string
	db        hc.Pinger
	session   core.Session
	validator core.SignatureValidator
	outcomes  core.OutcomeStore
	events    core.ScoreEventStore
}

// New new server function
func New(
	cfg *core.Config,
	version string,
	db hc.Pinger,
	session core.Session,
	validator core.SignatureValidator,
	outcomes core.OutcomeStore,
	events core.ScoreEventStore,
) Server {
	return Server{
		cfg:       cfg,
		version:   version,
		db:        db,
		session:   session,
		validator: validator,
		outcomes:  outcomes,
		events:    events,
	}
}

// Handler routes of the lti provider
func (s Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(logger.WithRequestID)
	mux.Use(logger.Middleware)
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, twirp.NotFoundError("not found"))
	})

	mux.Mount("/hc", hc.Handle(s.version, s.db))

	mux.Route("/lti", func(r chi.Router) {
		r.Use(auth.HandleAuthentication(s.session))
		r.Post("/courses/{course_id}/{usage_id}", launch.HandleLaunch(s.cfg.App, s.validator, s.outcomes))
	})

	mux.Route("/api", func(r chi.Router) {
		r.Post("/score-events", events.HandlePublish(s.events))
	})

	return mux
}
