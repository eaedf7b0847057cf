package core

import (
	"context"
	"fmt"
)

// Rejection reasons of an outcome response
const (
	ReasonUnexpectedStatus = "unexpected_status"
	ReasonParseError       = "parse_error"
	ReasonAmbiguousStatus  = "missing_or_ambiguous_status"
	ReasonNonSuccess       = "non_success_status"
)

type (
	// OutcomeResponse what the consumer answered to a replace result request
	OutcomeResponse struct {
		StatusCode int
		Body       []byte
	}

	// OutcomeResult interpretation of an OutcomeResponse
	OutcomeResult struct {
		Accepted bool
		Reason   string
		Detail   string
	}

	// TransportError the replace result request never got a response
	TransportError struct {
		URL     string
		Timeout bool
		Err     error
	}

	// OutcomeCodec builds and parses the outcome xml envelopes
	OutcomeCodec interface {
		BuildReplaceResultRequest(sourcedID string, score float64) ([]byte, error)
		ParseReplaceResultResponse(status int, body []byte) OutcomeResult
	}

	// OutcomeTransport signs and posts envelopes to an outcome service
	OutcomeTransport interface {
		Send(ctx context.Context, service *OutcomeService, secret string, xml []byte) (*OutcomeResponse, error)
	}
)

// Accepted result
func Accepted() OutcomeResult {
	return OutcomeResult{Accepted: true}
}

// Rejected result with reason
func Rejected(reason, detail string) OutcomeResult {
	return OutcomeResult{Reason: reason, Detail: detail}
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("outcome service %s: timeout: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("outcome service %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
