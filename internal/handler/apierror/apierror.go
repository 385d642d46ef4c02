package apierror

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

// Status maps an error kind to its HTTP status.
func Status(kind interview.Kind) int {
	switch kind {
	case interview.KindInvalidInput:
		return http.StatusBadRequest
	case interview.KindNotFound:
		return http.StatusNotFound
	case interview.KindSessionClosed:
		return http.StatusConflict
	case interview.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the failure envelope for err.
func FromError(err error) (utils.ErrorBody, int) {
	if errors.Is(err, context.DeadlineExceeded) && interview.KindOf(err) == interview.KindInternal {
		return utils.ErrorBody{Error: "request timeout", Kind: string(interview.KindUpstreamFailure)}, http.StatusGatewayTimeout
	}

	kind := interview.KindOf(err)
	body := utils.ErrorBody{
		Error: interview.DetailOf(err),
		Kind:  string(kind),
	}

	var e *interview.Error
	if errors.As(err, &e) && e.Err != nil && kind == interview.KindUpstreamFailure {
		body.Details = e.Err.Error()
	}
	return body, Status(kind)
}

// Write sends the failure envelope for err.
func Write(w http.ResponseWriter, err error) {
	body, status := FromError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s: %v", body.Kind, err)
	}
	utils.RespondErrorBody(w, status, body)
}

// InvalidInput sends a 400 envelope with message.
func InvalidInput(w http.ResponseWriter, message string) {
	Write(w, interview.NewError(interview.KindInvalidInput, message))
}
