package interview

import model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"

type trigger int

const (
	triggerPrompt trigger = iota
	triggerResponse
	triggerTerminate
)

// nextStatus applies the session state machine:
//
//	created -> speaking <-> waiting -> completed
//
// A response without a pending prompt moves created straight to waiting.
// Every non-terminal state may be terminated; completed accepts nothing.
func nextStatus(from model.Status, t trigger) (model.Status, error) {
	if from.Terminal() {
		return from, NewError(KindSessionClosed, "session is already completed")
	}
	switch t {
	case triggerPrompt:
		return model.StatusSpeaking, nil
	case triggerResponse:
		return model.StatusWaiting, nil
	case triggerTerminate:
		return model.StatusCompleted, nil
	default:
		return from, NewError(KindInternal, "unknown status trigger")
	}
}
