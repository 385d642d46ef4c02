package interview

import "time"

// EventType names a session change pushed to live subscribers.
type EventType string

const (
	EventEntry  EventType = "entry"
	EventStatus EventType = "status"
	EventEnded  EventType = "ended"
)

// Event is published after a session change has been committed.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Status    Status    `json:"status"`
	Entry     *Entry    `json:"entry,omitempty"`
	Results   *Results  `json:"results,omitempty"`
	At        time.Time `json:"at"`
}

// Clone returns a copy of ev that shares no memory with it.
func (ev Event) Clone() Event {
	if ev.Entry != nil {
		e := ev.Entry.Clone()
		ev.Entry = &e
	}
	if ev.Results != nil {
		r := ev.Results.Clone()
		ev.Results = &r
	}
	return ev
}
