package interview

import "time"

// EntryKind tags a transcript entry.
type EntryKind string

const (
	KindPrompt   EntryKind = "prompt"
	KindResponse EntryKind = "response"
)

// NoResponsePlaceholder replaces an empty candidate response.
const NoResponsePlaceholder = "[No response detected]"

// PromptDetails holds fields that only exist on avatar prompts.
type PromptDetails struct {
	TaskType     string `json:"taskType"`
	QuestionType string `json:"questionType"`
}

// ResponseDetails holds fields that only exist on candidate responses.
type ResponseDetails struct {
	ResponseType    string   `json:"responseType"`
	Confidence      *float64 `json:"confidence,omitempty"`
	DurationSeconds *float64 `json:"duration,omitempty"`
}

// Entry is one transcript line. Exactly one of Prompt or Response is set,
// matching Kind. Entries are never modified after they are appended.
type Entry struct {
	Sequence  int       `json:"sequence"`
	Kind      EntryKind `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	Prompt   *PromptDetails   `json:"prompt,omitempty"`
	Response *ResponseDetails `json:"response,omitempty"`

	// Set on responses recorded while a prompt was pending.
	CorrelatedPromptTimestamp *time.Time `json:"correlatedPromptTimestamp,omitempty"`
	CorrelatedPromptSequence  int        `json:"correlatedPromptSequence,omitempty"`
}

// NewPrompt builds an unsequenced prompt entry.
func NewPrompt(text string, details PromptDetails, at time.Time) Entry {
	return Entry{
		Kind:      KindPrompt,
		Text:      text,
		Timestamp: at,
		Prompt:    &details,
	}
}

// NewResponse builds an unsequenced response entry, substituting the
// placeholder for empty text.
func NewResponse(text string, details ResponseDetails, at time.Time) Entry {
	if text == "" {
		text = NoResponsePlaceholder
	}
	return Entry{
		Kind:      KindResponse,
		Text:      text,
		Timestamp: at,
		Response:  &details,
	}
}

func (e Entry) IsPrompt() bool   { return e.Kind == KindPrompt }
func (e Entry) IsResponse() bool { return e.Kind == KindResponse }

// Correlated reports whether the response was matched to a pending prompt.
func (e Entry) Correlated() bool {
	return e.CorrelatedPromptTimestamp != nil
}

// Clone returns a copy of e that shares no memory with it.
func (e Entry) Clone() Entry {
	if e.Prompt != nil {
		p := *e.Prompt
		e.Prompt = &p
	}
	if e.Response != nil {
		r := *e.Response
		r.Confidence = cloneFloat(r.Confidence)
		r.DurationSeconds = cloneFloat(r.DurationSeconds)
		e.Response = &r
	}
	if e.CorrelatedPromptTimestamp != nil {
		ts := *e.CorrelatedPromptTimestamp
		e.CorrelatedPromptTimestamp = &ts
	}
	return e
}

// CloneEntries deep-copies a transcript. The result is never nil.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
