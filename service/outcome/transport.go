package outcome

import (
	"context"
	"net/http"

	"ltiprovider/core"
	"ltiprovider/pkg/id"
	"ltiprovider/pkg/oauth"
	"ltiprovider/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const contentTypeXML = "application/xml"

type transport struct {
	client   *resty.Client
	bodyHash bool
}

// NewTransport new outcome transport. The client timeout bounds every send.
func NewTransport(client *resty.Client, cfg core.Outcome) core.OutcomeTransport {
	return &transport{
		client:   client,
		bodyHash: cfg.BodyHash,
	}
}

// Send posts the envelope once. Errors raised before a response arrives are
// *core.TransportError, a response of any status is returned as is.
func (t *transport) Send(ctx context.Context, service *core.OutcomeService, secret string, xml []byte) (*core.OutcomeResponse, error) {
	auth, err := oauth.AuthorizationHeader(http.MethodPost, service.ServiceURL, service.ConsumerKey, secret, xml, t.bodyHash)
	if err != nil {
		return nil, err
	}

	requestID := id.GenTraceID()
	log := logger.FromContext(ctx).WithField("outcome_request_id", requestID)
	log.Debugln("send replace result to", service.ServiceURL)

	resp, err := resthttp.WithRequestID(ctx, t.client, requestID).
		SetHeader("Content-Type", contentTypeXML).
		SetHeader("Authorization", auth).
		SetBody(xml).
		Post(service.ServiceURL)
	if err != nil {
		return nil, &core.TransportError{
			URL:     service.ServiceURL,
			Timeout: resthttp.IsTimeout(err),
			Err:     err,
		}
	}

	log.Debugf("outcome service responded %d", resp.StatusCode())
	return &core.OutcomeResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
