package interview

import "time"

// Status is the lifecycle state of an interview session.
type Status string

const (
	StatusCreated   Status = "created"
	StatusSpeaking  Status = "speaking"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further mutation is accepted in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Voice tunes the avatar's speech.
type Voice struct {
	Rate    float64 `json:"rate"`
	Emotion string  `json:"emotion"`
}

// Config is fixed when the session is created.
type Config struct {
	AvatarID      string `json:"avatarId"`
	Language      string `json:"language"`
	Quality       string `json:"quality"`
	Voice         Voice  `json:"voice"`
	KnowledgeID   string `json:"knowledgeId,omitempty"`
	InterviewMode bool   `json:"interviewMode"`
}

// Session is a point-in-time copy of one interview run.
type Session struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	Config          Config     `json:"config"`
	CreatedAt       time.Time  `json:"createdAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	LastActivity    time.Time  `json:"lastActivity"`
	Transcript      []Entry    `json:"transcript"`
	Responses       []Entry    `json:"responses"`
	CurrentQuestion *Entry     `json:"currentQuestion,omitempty"`
	LastResponse    *Entry     `json:"lastResponse,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Results         *Results   `json:"results,omitempty"`
}

// Summary is the list view of a session. It never carries the transcript.
type Summary struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
