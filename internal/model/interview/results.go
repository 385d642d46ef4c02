package interview

import "time"

// Duration describes how long the interview ran.
type Duration struct {
	Milliseconds int64   `json:"milliseconds"`
	Minutes      float64 `json:"minutes"`
	Formatted    string  `json:"formatted"`
}

// Statistics are derived once from the frozen transcript.
type Statistics struct {
	TotalPrompts   int `json:"totalPrompts"`
	TotalResponses int `json:"totalResponses"`

	// Gap between each response and the transcript entry right before it.
	// The first response counts as zero.
	AverageResponseLatencySeconds float64 `json:"averageResponseLatencySeconds"`
	// Gap between each response and the prompt it answered.
	AverageCorrelatedLatencySeconds float64 `json:"averageCorrelatedLatencySeconds"`

	UnansweredPrompts     int `json:"unansweredPrompts"`
	UncorrelatedResponses int `json:"uncorrelatedResponses"`
}

// Results is the frozen outcome of a terminated session.
type Results struct {
	SessionID  string     `json:"sessionId"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    time.Time  `json:"endedAt"`
	Duration   Duration   `json:"duration"`
	Statistics Statistics `json:"statistics"`
	Transcript []Entry    `json:"transcript"`
	Responses  []Entry    `json:"responses"`
	Config     Config     `json:"config"`
}

// Clone returns a copy of r whose transcript shares no memory with r.
func (r Results) Clone() Results {
	r.Transcript = CloneEntries(r.Transcript)
	r.Responses = CloneEntries(r.Responses)
	return r
}
