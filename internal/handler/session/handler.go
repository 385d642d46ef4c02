package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/apierror"
	avatarModel "github.com/zhouzirui/avatar-interview/backend/internal/model/avatar"
	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
	avatarService "github.com/zhouzirui/avatar-interview/backend/internal/service/avatar"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

// Handler 面试会话的HTTP处理器
type Handler struct {
	sessions *interview.Service
	avatars  avatarModel.Store
	tokens   avatarService.TokenIssuer
	notifier notify.Notifier
}

// New 创建会话处理器。tokens 与 notifier 可以为 nil
func New(sessions *interview.Service, avatars avatarModel.Store, tokens avatarService.TokenIssuer, notifier notify.Notifier) *Handler {
	return &Handler{
		sessions: sessions,
		avatars:  avatars,
		tokens:   tokens,
		notifier: notifier,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/start", h.handleStart)
	r.Get("/session/start", h.handleList)
	r.Post("/session/speak", h.handleSpeak)
	r.Get("/session/speak", h.handleSpeakStatus)
	r.Post("/session/response", h.handleResponse)
	r.Get("/session/response", h.handleResponses)
	r.Post("/session/end", h.handleEnd)
	r.Get("/session/end", h.handleResults)
	r.Get("/session/{sessionID}", h.handleGet)
}

// handleStart 创建面试会话并签发头像访问令牌
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AvatarID      string         `json:"avatarId"`
		Language      string         `json:"language"`
		Quality       string         `json:"quality"`
		Voice         *model.Voice   `json:"voice"`
		KnowledgeID   string         `json:"knowledgeId"`
		InterviewMode *bool          `json:"interviewMode"`
		CandidateInfo map[string]any `json:"candidateInfo"`
	}
	if err := decodeBody(r, &payload, true); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}

	cfg := model.Config{
		AvatarID:      strings.TrimSpace(payload.AvatarID),
		Language:      payload.Language,
		Quality:       payload.Quality,
		KnowledgeID:   payload.KnowledgeID,
		InterviewMode: true,
	}
	if payload.Voice != nil {
		cfg.Voice = *payload.Voice
	}
	if payload.InterviewMode != nil {
		cfg.InterviewMode = *payload.InterviewMode
	}
	if cfg.AvatarID == "" {
		cfg.AvatarID = avatarModel.DefaultAvatarID
	}
	if h.avatars != nil {
		if profile, ok := h.avatars.FindByID(cfg.AvatarID); ok {
			cfg = profile.ApplyDefaults(cfg)
		}
	}

	var token string
	if h.tokens != nil {
		issued, err := h.tokens.IssueAccessToken(r.Context())
		if err != nil {
			apierror.Write(w, interview.Wrap(interview.KindUpstreamFailure, "failed to create access token", err))
			return
		}
		token = issued
	}

	session, err := h.sessions.Create(r.Context(), cfg)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	started := notify.StartedPayload(session, time.Now().UTC())
	started.CandidateInfo = notify.RequestInfo(r, payload.CandidateInfo)
	outcome := h.dispatch(r.Context(), started)

	fields := map[string]any{
		"sessionId":    session.ID,
		"status":       session.Status,
		"config":       session.Config,
		"createdAt":    session.CreatedAt,
		"message":      "Interview session created successfully",
		"notification": outcome,
	}
	if token != "" {
		fields["accessToken"] = token
	}
	utils.RespondSuccess(w, http.StatusCreated, fields)
}

// handleList 列出当前进程中的会话
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	summaries := h.sessions.List(r.Context())
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"activeSessions": len(summaries),
		"sessions":       summaries,
	})
}

// handleSpeak 记录头像提问
func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID    string `json:"sessionId"`
		Text         string `json:"text"`
		TaskType     string `json:"taskType"`
		QuestionType string `json:"questionType"`
	}
	if err := decodeBody(r, &payload, false); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" || strings.TrimSpace(payload.Text) == "" {
		apierror.InvalidInput(w, "sessionId and text are required")
		return
	}

	entry, session, err := h.sessions.RecordPromptSnapshot(r.Context(), payload.SessionID, payload.Text, model.PromptDetails{
		TaskType:     payload.TaskType,
		QuestionType: payload.QuestionType,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId":    payload.SessionID,
		"message":      "Avatar will speak the question",
		"questionSent": entry.Text,
		"taskType":     entry.Prompt.TaskType,
		"timestamp":    entry.Timestamp,
		"entry":        entry,
		"status":       session.Status,
		"transcript":   session.Transcript,
		"speakData": map[string]string{
			"text":      entry.Text,
			"task_type": entry.Prompt.TaskType,
			"task_mode": "sync",
		},
	})
}

// handleSpeakStatus 查询当前问题与会话状态
func (h *Handler) handleSpeakStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId":       session.ID,
		"status":          session.Status,
		"currentQuestion": session.CurrentQuestion,
		"transcript":      session.Transcript,
	})
}

// handleResponse 记录候选人回答
func (h *Handler) handleResponse(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID    string   `json:"sessionId"`
		ResponseText string   `json:"responseText"`
		ResponseType string   `json:"responseType"`
		Confidence   *float64 `json:"confidence"`
		Duration     *float64 `json:"duration"`
	}
	if err := decodeBody(r, &payload, false); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return
	}

	entry, session, err := h.sessions.RecordResponseSnapshot(r.Context(), payload.SessionID, payload.ResponseText, model.ResponseDetails{
		ResponseType:    payload.ResponseType,
		Confidence:      payload.Confidence,
		DurationSeconds: payload.Duration,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId":      payload.SessionID,
		"message":        "User response recorded",
		"response":       entry,
		"status":         session.Status,
		"totalResponses": len(session.Responses),
		"transcript":     session.Transcript,
	})
}

// handleResponses 查询已记录的回答
func (h *Handler) handleResponses(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId":      session.ID,
		"status":         session.Status,
		"responses":      session.Responses,
		"lastResponse":   session.LastResponse,
		"totalResponses": len(session.Responses),
		"transcript":     session.Transcript,
	})
}

// handleEnd 结束会话、计算统计并通知自动化流程
func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Reason    string `json:"reason"`
	}
	if err := decodeBody(r, &payload, false); err != nil {
		apierror.InvalidInput(w, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return
	}

	results, err := h.sessions.Terminate(r.Context(), payload.SessionID, payload.Reason)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	outcome := h.dispatch(r.Context(), notify.EndedPayload(results, time.Now().UTC()))

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId":    results.SessionID,
		"message":      "Interview session ended successfully",
		"results":      results,
		"notification": outcome,
	})
}

// handleResults 查询已结束会话的结果
func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if strings.TrimSpace(sessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return
	}
	results, err := h.sessions.Results(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"sessionId": results.SessionID,
		"results":   results,
	})
}

// handleGet 返回会话快照
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"session": session,
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, sessionID string) (model.Session, bool) {
	if strings.TrimSpace(sessionID) == "" {
		apierror.InvalidInput(w, "sessionId is required")
		return model.Session{}, false
	}
	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return model.Session{}, false
	}
	return session, true
}

// dispatch 在本地状态提交之后发送通知，客户端断开不会中断投递
func (h *Handler) dispatch(ctx context.Context, payload notify.Payload) notify.Outcome {
	outcome := notify.Dispatch(context.WithoutCancel(ctx), h.notifier, "", payload)
	if outcome.Error != "" {
		log.Printf("[session] %s notification for %s failed: %s", outcome.Event, payload.SessionID, outcome.Error)
	}
	return outcome
}

// decodeBody 解析JSON请求体，allowEmpty 时空请求体视为 {}
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
