package interview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewError(KindNotFound, "session not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "session not found", DetailOf(err))
}

func TestKindOfForeignError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", DetailOf(err))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindUpstreamFailure, "failed to create access token", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, "failed to create access token: dial tcp: refused", err.Error())
}
