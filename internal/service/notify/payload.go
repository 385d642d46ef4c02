package notify

import (
	"time"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
)

// EventType names an outbound interview event.
type EventType string

const (
	EventInterviewStarted EventType = "interview_started"
	EventInterviewEnded   EventType = "interview_ended"
)

// Payload is the JSON body posted to the automation webhook.
type Payload struct {
	Event     EventType `json:"event"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`

	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	EndReason string     `json:"endReason,omitempty"`

	Duration     *model.Duration   `json:"duration,omitempty"`
	Statistics   *model.Statistics `json:"statistics,omitempty"`
	Conversation []model.Entry     `json:"conversation,omitempty"`

	CandidateInfo map[string]any    `json:"candidateInfo,omitempty"`
	AvatarConfig  any               `json:"avatarConfig,omitempty"`
	APIBaseURL    string            `json:"apiBaseUrl,omitempty"`
	Endpoints     map[string]string `json:"endpoints,omitempty"`
}

// StartedPayload describes a freshly created session.
func StartedPayload(session model.Session, at time.Time) Payload {
	started := session.CreatedAt
	return Payload{
		Event:        EventInterviewStarted,
		SessionID:    session.ID,
		Timestamp:    at,
		StartedAt:    &started,
		AvatarConfig: session.Config,
		Endpoints: map[string]string{
			"speak":    "/api/session/speak",
			"response": "/api/session/response",
			"end":      "/api/session/end",
			"status":   "/api/session/speak?sessionId=" + session.ID,
		},
	}
}

// EndedPayload carries the full transcript and statistics of a completed
// session.
func EndedPayload(results model.Results, at time.Time) Payload {
	started, ended := results.StartedAt, results.EndedAt
	duration, stats := results.Duration, results.Statistics
	return Payload{
		Event:        EventInterviewEnded,
		SessionID:    results.SessionID,
		Timestamp:    at,
		StartedAt:    &started,
		EndedAt:      &ended,
		EndReason:    results.Reason,
		Duration:     &duration,
		Statistics:   &stats,
		Conversation: results.Transcript,
		AvatarConfig: results.Config,
	}
}
