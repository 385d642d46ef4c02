package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
)

type automation struct {
	mu       sync.Mutex
	status   int
	payloads []notify.Payload
	agents   []string
}

func (a *automation) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p notify.Payload
	_ = json.NewDecoder(r.Body).Decode(&p)
	a.mu.Lock()
	a.payloads = append(a.payloads, p)
	a.agents = append(a.agents, r.UserAgent())
	status := a.status
	a.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte("workflow started"))
}

func (a *automation) received() ([]notify.Payload, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]notify.Payload(nil), a.payloads...), append([]string(nil), a.agents...)
}

func setup(t *testing.T, startedURL, endedURL string, allowOverride bool) (*chi.Mux, *interview.Service) {
	t.Helper()
	sessions := interview.NewService()
	t.Cleanup(sessions.Close)

	client := notify.NewClient(notify.Config{
		StartedURL:      startedURL,
		EndedURL:        endedURL,
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
	}, nil)

	r := chi.NewRouter()
	New(sessions, client, allowOverride).RegisterRoutes(r)
	return r, sessions
}

func post(t *testing.T, r http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("User-Agent", "candidate-browser")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &decoded))
	return resp, decoded
}

func TestInterviewStartedDeliversToAutomation(t *testing.T) {
	hook := &automation{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	r, sessions := setup(t, srv.URL+"/webhook/secret-token", "", false)
	session, err := sessions.Create(context.Background(), model.Config{AvatarID: "Ann_Therapist"})
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-started", map[string]any{
		"sessionId":     session.ID,
		"candidateInfo": map[string]any{"name": "Rina"},
	})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, srv.URL+"/webhook/***", body["webhookUrl"])
	assert.Equal(t, "workflow started", body["webhookResponse"])

	payloads, agents := hook.received()
	require.Len(t, payloads, 1)
	got := payloads[0]
	assert.Equal(t, notify.EventInterviewStarted, got.Event)
	assert.Equal(t, session.ID, got.SessionID)
	assert.Equal(t, "candidate-browser", got.CandidateInfo["userAgent"])
	assert.Equal(t, "Rina", got.CandidateInfo["name"])
	assert.Equal(t, "/api/session/speak", got.Endpoints["speak"])
	assert.Equal(t, notify.DefaultUserAgent, agents[0])
}

func TestInterviewStartedRequiresURL(t *testing.T) {
	r, sessions := setup(t, "", "", false)
	session, err := sessions.Create(context.Background(), model.Config{})
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-started", map[string]any{"sessionId": session.ID})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "N8N webhook URL not configured", body["error"])
}

func TestInterviewStartedUnknownSession(t *testing.T) {
	r, _ := setup(t, "https://n8n.local/hook", "", false)

	resp, body := post(t, r, "/webhook/interview-started", map[string]any{"sessionId": "interview_0_missing"})

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", body["kind"])
}

func TestInterviewEndedUsesOverrideURL(t *testing.T) {
	hook := &automation{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	r, sessions := setup(t, "", "", true)
	ctx := context.Background()
	session, err := sessions.Create(ctx, model.Config{})
	require.NoError(t, err)
	_, err = sessions.RecordPrompt(ctx, session.ID, "Why this role?", model.PromptDetails{})
	require.NoError(t, err)
	_, err = sessions.RecordResponse(ctx, session.ID, "Because of the team.", model.ResponseDetails{})
	require.NoError(t, err)
	_, err = sessions.Terminate(ctx, session.ID, "")
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-ended", map[string]any{
		"sessionId":  session.ID,
		"endReason":  "user_ended",
		"webhookUrl": srv.URL + "/conversation",
	})

	require.Equal(t, http.StatusOK, resp.Code)
	summary := body["conversationSummary"].(map[string]any)
	assert.EqualValues(t, 2, summary["totalMessages"])

	payloads, _ := hook.received()
	require.Len(t, payloads, 1)
	got := payloads[0]
	assert.Equal(t, notify.EventInterviewEnded, got.Event)
	assert.Equal(t, "user_ended", got.EndReason)
	assert.Len(t, got.Conversation, 2)
	require.NotNil(t, got.Statistics)
	assert.Equal(t, 1, got.Statistics.TotalResponses)
}

func TestWebhookURLOverrideRejectedByDefault(t *testing.T) {
	hook := &automation{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	r, sessions := setup(t, "https://n8n.local/hook", "", false)
	session, err := sessions.Create(context.Background(), model.Config{})
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-started", map[string]any{
		"sessionId":  session.ID,
		"webhookUrl": srv.URL + "/internal-admin",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "webhookUrl override is disabled", body["error"])
	payloads, _ := hook.received()
	assert.Empty(t, payloads)
}

func TestInterviewEndedBeforeCompletion(t *testing.T) {
	r, sessions := setup(t, "", "https://n8n.local/conversation", false)
	session, err := sessions.Create(context.Background(), model.Config{})
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-ended", map[string]any{"sessionId": session.ID})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "session is not completed yet", body["error"])
}

func TestAutomationRejectionIsUpstreamFailure(t *testing.T) {
	hook := &automation{status: http.StatusUnauthorized}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	r, sessions := setup(t, srv.URL+"/hook", "", false)
	session, err := sessions.Create(context.Background(), model.Config{})
	require.NoError(t, err)

	resp, body := post(t, r, "/webhook/interview-started", map[string]any{"sessionId": session.ID})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "upstream_failure", body["kind"])
	assert.Contains(t, body["details"], "HTTP 401")
	payloads, _ := hook.received()
	assert.Len(t, payloads, 1)
}

func TestHealth(t *testing.T) {
	r, _ := setup(t, "https://n8n.local/hook", "", false)

	req := httptest.NewRequest(http.MethodGet, "/webhook/interview-started", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, false, body["urlOverride"])

	req = httptest.NewRequest(http.MethodGet, "/webhook/interview-ended", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, false, body["configured"])
}
