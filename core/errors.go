package core

import (
	"errors"
	"strconv"
)

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001

	// ErrMissingLaunchParameter required lti parameter missing
	ErrMissingLaunchParameter ErrorCode = 100100
	// ErrInvalidSignature oauth signature rejected
	ErrInvalidSignature ErrorCode = 100101
	// ErrInvalidCourseKey course or usage id cannot be parsed
	ErrInvalidCourseKey ErrorCode = 100102
	// ErrInvalidScoreEvent score event misses required fields
	ErrInvalidScoreEvent ErrorCode = 100103
	// ErrUnauthenticated no user session
	ErrUnauthenticated ErrorCode = 100104
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

var (
	// ErrConsumerNotFound no consumer registered for the key
	ErrConsumerNotFound = errors.New("lti consumer not found")
)
