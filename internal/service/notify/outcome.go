package notify

import (
	"context"
	"net/http"
	"strings"
)

// Outcome tells the caller whether the automation heard about a local
// state change that has already been committed.
type Outcome struct {
	Event     EventType `json:"event"`
	Delivered bool      `json:"delivered"`
	Skipped   bool      `json:"skipped,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Dispatch sends payload through n and folds the result into an Outcome.
// A nil notifier or an unconfigured URL is reported as skipped.
func Dispatch(ctx context.Context, n Notifier, override string, payload Payload) Outcome {
	out := Outcome{Event: payload.Event}
	if n == nil {
		out.Skipped = true
		return out
	}

	url := n.URLFor(payload.Event, override)
	if url == "" {
		out.Skipped = true
		return out
	}

	delivery, err := n.Send(ctx, url, payload)
	out.Attempts = delivery.Attempts
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Delivered = true
	return out
}

// RequestInfo collects what the request tells about the candidate's
// browser, merged with extra fields supplied by the caller.
func RequestInfo(r *http.Request, extra map[string]any) map[string]any {
	info := map[string]any{
		"userAgent": r.UserAgent(),
		"ip":        clientIP(r),
	}
	if ref := r.Referer(); ref != "" {
		info["referrer"] = ref
	}
	for k, v := range extra {
		info[k] = v
	}
	return info
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return r.RemoteAddr
}
