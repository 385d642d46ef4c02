package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/apierror"
	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
)

const (
	pingInterval = 54 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler 头像前端的实时通道：WebSocket 接收 SDK 事件，SSE 推送会话事件
type Handler struct {
	sessions     *interview.Service
	notifier     notify.Notifier
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	heartbeat    time.Duration
}

// New 创建实时通道处理器，notifier 可以为 nil
func New(sessions *interview.Service, notifier notify.Notifier) *Handler {
	return &Handler{
		sessions: sessions,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: pingInterval,
		heartbeat:    sseHeartbeat,
	}
}

// RegisterRoutes 注册实时通道路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/live", h.handleLive)
	r.Get("/session/{sessionID}/events", h.handleEvents)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AvatarMessage 头像说出的一句话
type AvatarMessage struct {
	Text         string `json:"text"`
	TaskType     string `json:"taskType"`
	QuestionType string `json:"questionType"`
}

// UserMessage 候选人的一次回答
type UserMessage struct {
	Text         string   `json:"text"`
	ResponseType string   `json:"responseType"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
}

// EndMessage 结束面试
type EndMessage struct {
	Reason string `json:"reason"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(msgType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *conn) sendError(err error) {
	body, _ := apierror.FromError(err)
	if werr := c.send("error", map[string]string{"message": body.Error, "kind": body.Kind}); werr != nil {
		log.Printf("[live] write error failed session=%s: %v", c.sessionID, werr)
	}
}

// handleLive 处理头像前端的 WebSocket 连接
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	events, release, err := h.sessions.Subscribe(r.Context(), sessionID)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	defer release()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[live] connection opened session=%s", sessionID)
	c := &conn{ws: ws, sessionID: sessionID}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, c)
	go h.forward(ctx, cancel, c, events)

	if err := c.send("connected", map[string]any{"status": session.Status, "config": session.Config}); err != nil {
		return
	}

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[live] read error session=%s: %v", sessionID, err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError(interview.NewError(interview.KindInvalidInput, "session mismatch"))
			continue
		}
		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg *inboundMessage) {
	switch msg.Type {
	case "avatar_message":
		var data AvatarMessage
		if !decode(c, msg.Data, &data) {
			return
		}
		entry, err := h.sessions.RecordPrompt(ctx, c.sessionID, data.Text, model.PromptDetails{
			TaskType:     data.TaskType,
			QuestionType: data.QuestionType,
		})
		h.ack(c, msg.Type, entry, err)

	case "user_message":
		var data UserMessage
		if !decode(c, msg.Data, &data) {
			return
		}
		entry, err := h.sessions.RecordResponse(ctx, c.sessionID, data.Text, model.ResponseDetails{
			ResponseType:    data.ResponseType,
			Confidence:      data.Confidence,
			DurationSeconds: data.Duration,
		})
		h.ack(c, msg.Type, entry, err)

	case "end":
		var data EndMessage
		if len(msg.Data) > 0 && !decode(c, msg.Data, &data) {
			return
		}
		results, err := h.sessions.Terminate(ctx, c.sessionID, data.Reason)
		if err != nil {
			c.sendError(err)
			return
		}
		outcome := notify.Dispatch(context.WithoutCancel(ctx), h.notifier, "", notify.EndedPayload(results, time.Now().UTC()))
		if outcome.Error != "" {
			log.Printf("[live] interview_ended notification for %s failed: %s", c.sessionID, outcome.Error)
		}
		_ = c.send("ack", map[string]any{"for": msg.Type, "results": results, "notification": outcome})

	default:
		c.sendError(interview.NewError(interview.KindInvalidInput, "unsupported message type: "+msg.Type))
	}
}

func (h *Handler) ack(c *conn, msgType string, entry model.Entry, err error) {
	if err != nil {
		c.sendError(err)
		return
	}
	_ = c.send("ack", map[string]any{"for": msgType, "entry": entry})
}

func decode(c *conn, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.sendError(interview.NewError(interview.KindInvalidInput, "invalid message payload"))
		return false
	}
	return true
}

// forward 把会话事件推送给前端，会话被清理时关闭连接
func (h *Handler) forward(ctx context.Context, cancel context.CancelFunc, c *conn, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = c.send("closed", map[string]string{"reason": "session released"})
				cancel()
				_ = c.ws.Close()
				return
			}
			if err := c.send(string(ev.Type), ev); err != nil {
				log.Printf("[live] forward failed session=%s: %v", c.sessionID, err)
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
