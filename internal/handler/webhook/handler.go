package webhook

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/apierror"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

// Handler 手动触发自动化通知的HTTP处理器
type Handler struct {
	sessions      *interview.Service
	notifier      notify.Notifier
	allowOverride bool
}

// New 创建通知触发处理器。allowOverride 为 false 时拒绝请求体中的 webhookUrl，
// 避免服务端被用来向任意地址发起请求。
func New(sessions *interview.Service, notifier notify.Notifier, allowOverride bool) *Handler {
	return &Handler{sessions: sessions, notifier: notifier, allowOverride: allowOverride}
}

// RegisterRoutes 注册通知相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/interview-started", h.handleStarted)
	r.Get("/webhook/interview-started", h.health(
		"Interview webhook endpoint is ready",
		"POST /api/webhook/interview-started",
		"N8N_WEBHOOK_URL (or webhookUrl in the body when NOTIFY_ALLOW_URL_OVERRIDE=true)",
	))
	r.Post("/webhook/interview-ended", h.handleEnded)
	r.Get("/webhook/interview-ended", h.health(
		"Interview end webhook endpoint is ready",
		"POST /api/webhook/interview-ended",
		"N8N_CONVERSATION_WEBHOOK_URL (or webhookUrl in the body when NOTIFY_ALLOW_URL_OVERRIDE=true)",
	))
}

// handleStarted 重新投递 interview_started 事件
func (h *Handler) handleStarted(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID     string         `json:"sessionId"`
		CandidateInfo map[string]any `json:"candidateInfo"`
		AvatarConfig  map[string]any `json:"avatarConfig"`
		WebhookURL    string         `json:"webhookUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return
	}
	if !h.overrideAllowed(payload.WebhookURL) {
		apierror.InvalidInput(w, "webhookUrl override is disabled")
		return
	}

	session, err := h.sessions.Get(r.Context(), payload.SessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	url := h.resolveURL(notify.EventInterviewStarted, payload.WebhookURL)
	if url == "" {
		apierror.InvalidInput(w, "N8N webhook URL not configured")
		return
	}

	out := notify.StartedPayload(session, time.Now().UTC())
	out.CandidateInfo = notify.RequestInfo(r, payload.CandidateInfo)
	out.APIBaseURL = baseURL(r)
	if len(payload.AvatarConfig) > 0 {
		out.AvatarConfig = payload.AvatarConfig
	}

	delivery, err := h.notifier.Send(r.Context(), url, out)
	if err != nil {
		apierror.Write(w, interview.Wrap(interview.KindUpstreamFailure, "failed to trigger n8n webhook", err))
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"message":         "n8n webhook triggered successfully",
		"sessionId":       session.ID,
		"webhookUrl":      notify.MaskURL(url),
		"webhookResponse": delivery.Body,
		"attempts":        delivery.Attempts,
	})
}

// handleEnded 重新投递 interview_ended 事件，要求会话已结束
func (h *Handler) handleEnded(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID  string `json:"sessionId"`
		EndReason  string `json:"endReason"`
		WebhookURL string `json:"webhookUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return
	}
	if !h.overrideAllowed(payload.WebhookURL) {
		apierror.InvalidInput(w, "webhookUrl override is disabled")
		return
	}

	results, err := h.sessions.Results(r.Context(), payload.SessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	url := h.resolveURL(notify.EventInterviewEnded, payload.WebhookURL)
	if url == "" {
		apierror.InvalidInput(w, "N8N conversation webhook URL not configured")
		return
	}

	at := time.Now().UTC()
	out := notify.EndedPayload(results, at)
	if reason := strings.TrimSpace(payload.EndReason); reason != "" {
		out.EndReason = reason
	}
	out.CandidateInfo = notify.RequestInfo(r, map[string]any{"endTime": results.EndedAt})

	delivery, err := h.notifier.Send(r.Context(), url, out)
	if err != nil {
		apierror.Write(w, interview.Wrap(interview.KindUpstreamFailure, "failed to send conversation to n8n", err))
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"message":   "Interview conversation sent to n8n successfully",
		"sessionId": results.SessionID,
		"conversationSummary": map[string]any{
			"totalMessages": len(results.Transcript),
			"duration":      results.Duration.Formatted,
			"endTime":       results.EndedAt,
		},
		"webhookUrl": notify.MaskURL(url),
		"attempts":   delivery.Attempts,
	})
}

func (h *Handler) health(message, trigger, env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		utils.RespondSuccess(w, http.StatusOK, map[string]any{
			"message": message,
			"endpoints": map[string]string{
				"trigger": trigger,
				"health":  "GET " + path,
			},
			"configured":  h.resolveURL(eventFor(path), "") != "",
			"urlOverride": h.allowOverride,
			"requiredEnv": []string{env},
		})
	}
}

func (h *Handler) overrideAllowed(override string) bool {
	return h.allowOverride || strings.TrimSpace(override) == ""
}

func (h *Handler) resolveURL(event notify.EventType, override string) string {
	if h.notifier == nil {
		return ""
	}
	return h.notifier.URLFor(event, strings.TrimSpace(override))
}

func eventFor(path string) notify.EventType {
	if strings.HasSuffix(path, "interview-ended") {
		return notify.EventInterviewEnded
	}
	return notify.EventInterviewStarted
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
