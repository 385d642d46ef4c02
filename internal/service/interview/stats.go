package interview

import (
	"fmt"
	"math"
	"time"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
)

// computeResults freezes the outcome of a session. transcript must already
// be in receipt order.
func computeResults(r *record, reason string) model.Results {
	transcript := model.CloneEntries(r.transcript)
	responses := model.CloneEntries(r.responses)

	return model.Results{
		SessionID:  r.id,
		Status:     model.StatusCompleted,
		Reason:     reason,
		StartedAt:  r.createdAt,
		EndedAt:    r.endedAt,
		Duration:   computeDuration(r.createdAt, r.endedAt),
		Statistics: computeStatistics(transcript),
		Transcript: transcript,
		Responses:  responses,
		Config:     r.config,
	}
}

func computeDuration(start, end time.Time) model.Duration {
	ms := end.Sub(start).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	minutes := roundTo(float64(ms)/60000, 2)
	return model.Duration{
		Milliseconds: ms,
		Minutes:      minutes,
		Formatted:    formatMinutes(minutes),
	}
}

// formatMinutes renders fractional minutes as "Xm Ys".
func formatMinutes(minutes float64) string {
	whole := math.Floor(minutes)
	seconds := math.Round(math.Mod(minutes, 1) * 60)
	return fmt.Sprintf("%dm %ds", int64(whole), int64(seconds))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func computeStatistics(transcript []model.Entry) model.Statistics {
	var (
		stats          model.Statistics
		adjacentSum    time.Duration
		correlatedSum  time.Duration
		correlatedN    int
		answeredPrompt = make(map[int]bool)
	)

	for i, entry := range transcript {
		switch entry.Kind {
		case model.KindPrompt:
			stats.TotalPrompts++
		case model.KindResponse:
			// The first response contributes zero; later ones are measured
			// from whatever entry was recorded right before them.
			if stats.TotalResponses > 0 && i > 0 {
				adjacentSum += entry.Timestamp.Sub(transcript[i-1].Timestamp)
			}
			stats.TotalResponses++

			if entry.Correlated() {
				correlatedSum += entry.Timestamp.Sub(*entry.CorrelatedPromptTimestamp)
				correlatedN++
				answeredPrompt[entry.CorrelatedPromptSequence] = true
			} else {
				stats.UncorrelatedResponses++
			}
		}
	}

	for _, entry := range transcript {
		if entry.IsPrompt() && !answeredPrompt[entry.Sequence] {
			stats.UnansweredPrompts++
		}
	}

	if stats.TotalResponses > 0 {
		stats.AverageResponseLatencySeconds = adjacentSum.Seconds() / float64(stats.TotalResponses)
	}
	if correlatedN > 0 {
		stats.AverageCorrelatedLatencySeconds = correlatedSum.Seconds() / float64(correlatedN)
	}
	return stats
}
