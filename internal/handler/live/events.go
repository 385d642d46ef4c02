package live

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/apierror"
	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

const sseHeartbeat = 15 * time.Second

// handleEvents 以 SSE 推送会话事件，首条为当前快照，ended 之后结束
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.Write(w, interview.NewError(interview.KindInternal, "streaming unsupported"))
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	events, release, err := h.sessions.Subscribe(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	defer release()

	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", session); err != nil {
		return
	}
	if session.Status.Terminal() {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				log.Printf("[live] sse write failed session=%s: %v", sessionID, err)
				return
			}
			if ev.Type == model.EventEnded {
				return
			}
		}
	}
}
