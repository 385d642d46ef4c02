package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

func TestFromErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   interview.Kind
	}{
		{interview.NewError(interview.KindInvalidInput, "sessionId is required"), http.StatusBadRequest, interview.KindInvalidInput},
		{interview.NewError(interview.KindNotFound, "session not found"), http.StatusNotFound, interview.KindNotFound},
		{interview.NewError(interview.KindSessionClosed, "session is already completed"), http.StatusConflict, interview.KindSessionClosed},
		{interview.Wrap(interview.KindUpstreamFailure, "failed to create access token", errors.New("HTTP 401")), http.StatusBadGateway, interview.KindUpstreamFailure},
		{errors.New("boom"), http.StatusInternalServerError, interview.KindInternal},
	}
	for _, tc := range cases {
		body, status := FromError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, string(tc.kind), body.Kind)
	}
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	body, _ := FromError(errors.New("nil map write"))

	assert.Equal(t, "internal error", body.Error)
	assert.Empty(t, body.Details)
}

func TestFromErrorTimeout(t *testing.T) {
	_, status := FromError(fmt.Errorf("token: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, status)
}

func TestWriteUpstreamDetails(t *testing.T) {
	rr := httptest.NewRecorder()

	Write(rr, interview.Wrap(interview.KindUpstreamFailure, "failed to create access token", errors.New("HTTP 500")))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "failed to create access token", body.Error)
	assert.Equal(t, "HTTP 500", body.Details)
}
