package launch

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"ltiprovider/core"
	"ltiprovider/handler/codes"
	"ltiprovider/handler/render"
	"ltiprovider/handler/request"
	"ltiprovider/internal/locator"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/gorilla/schema"
	"github.com/twitchtv/twirp"
)

const (
	maxBodySize     = 1 << 16
	contentTypeForm = "application/x-www-form-urlencoded"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// Response launch result
type Response struct {
	CourseID string `json:"course_id"`
	UsageID  string `json:"usage_id"`
	Graded   bool   `json:"graded"`
}

// HandleLaunch authenticates an lti launch and records whether the consumer
// expects score callbacks for it
func HandleLaunch(app core.App, validator core.SignatureValidator, outcomes core.OutcomeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		if !app.EnableLtiProvider {
			render.Error(w, codes.With(twirp.NewError(twirp.PermissionDenied, "lti provider disabled"), core.ErrOperationForbidden))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			render.Error(w, twirp.NewError(twirp.Malformed, err.Error()))
			return
		}

		form, err := parseForm(r.Header.Get("Content-Type"), body)
		if err != nil {
			render.Error(w, codes.With(twirp.NewError(twirp.Malformed, err.Error()), core.ErrMissingLaunchParameter))
			return
		}

		var params core.LaunchParams
		if err := decoder.Decode(&params, form); err != nil {
			render.Error(w, codes.With(twirp.NewError(twirp.Malformed, err.Error()), core.ErrMissingLaunchParameter))
			return
		}

		if name, missing := params.MissingRequired(); missing {
			log.Infoln("lti launch: missing required parameter", name)
			render.Error(w, codes.With(twirp.RequiredArgumentError(name), core.ErrMissingLaunchParameter))
			return
		}

		if !validator.Verify(ctx, r.Method, launchURL(r, app.BaseURL), r.Header.Get("Content-Type"), body) {
			render.Error(w, codes.With(twirp.NewError(twirp.PermissionDenied, "invalid oauth signature"), core.ErrInvalidSignature))
			return
		}

		user, ok := request.NewContext(ctx).GetUser()
		if !ok {
			render.Error(w, codes.With(twirp.NewError(twirp.Unauthenticated, "login required"), core.ErrUnauthenticated))
			return
		}

		courseKey, usageKey, err := locator.Parse(urlParam(r, "course_id"), urlParam(r, "usage_id"))
		if err != nil {
			render.Error(w, codes.With(twirp.InvalidArgumentError("course_id", err.Error()), core.ErrInvalidCourseKey))
			return
		}

		params.CourseKey = courseKey.String()
		params.UsageKey = usageKey.String()

		if err := outcomes.RegisterIfGraded(ctx, &params, user); err != nil {
			log.WithError(err).Errorln("outcomes.RegisterIfGraded")
			render.Error(w, err)
			return
		}

		render.JSON(w, Response{
			CourseID: params.CourseKey,
			UsageID:  params.UsageKey,
			Graded:   params.ResultSourcedID != "" && params.OutcomeServiceURL != "",
		})
	}
}

// urlParam deprecated course ids carry escaped slashes
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if s, err := url.PathUnescape(v); err == nil {
		return s
	}

	return v
}

func parseForm(contentType string, body []byte) (url.Values, error) {
	if contentType == "" {
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

// launchURL the url the consumer signed. baseURL replaces scheme and host
// when the server runs behind a proxy.
func launchURL(r *http.Request, baseURL string) string {
	if baseURL != "" {
		return strings.TrimSuffix(baseURL, "/") + r.URL.RequestURI()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.RequestURI()
}
