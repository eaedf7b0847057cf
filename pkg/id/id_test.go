package id

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenUUIDString(t *testing.T) {
	a, b := GenUUIDString(), GenUUIDString()
	assert.NotEqual(t, a, b)

	u, err := uuid.FromString(a)
	assert.Nil(t, err)
	assert.Equal(t, uuid.V4, u.Version())
}

func TestTraceIDFrom(t *testing.T) {
	assert.Equal(t, TraceIDFrom("score:1"), TraceIDFrom("score:1"))
	assert.NotEqual(t, TraceIDFrom("score:1"), TraceIDFrom("score:2"))
}
