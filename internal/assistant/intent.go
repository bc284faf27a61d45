package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/symptom"
)

type detection int

const (
	notSymptom detection = iota
	isSymptom
	inconclusive
)

// First-person phrasing that may describe a symptom the keyword table misses.
var selfReportCues = []string{
	"i have", "i've had", "i've been", "i have been", "i am having", "i'm having",
	"i got", "i've got", "i keep", "since yesterday", "since last", "my ",
}

// isSymptomReport decides whether message should be logged, using keywords
// first and the classifier only for the inconclusive remainder.
func (a *Assistant) isSymptomReport(ctx context.Context, message string) bool {
	switch detectByKeywords(message) {
	case isSymptom:
		return true
	case notSymptom:
		return false
	}

	label, err := a.llm.Complete(ctx, llm.Request{
		System:      llm.ClassifierPrompt,
		Prompt:      message,
		Temperature: 0,
		MaxTokens:   8,
		Timeout:     classifyTimeout,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrClientNotInitialised) {
			a.logger.WithError(err).Warn("assistant: symptom classification")
		}
		return false
	}
	return strings.EqualFold(strings.Trim(strings.TrimSpace(label), ".\"'"), "symptom")
}

func detectByKeywords(message string) detection {
	if symptom.LooksLikeSymptom(message) {
		return isSymptom
	}
	lower := strings.ToLower(message)
	for _, cue := range selfReportCues {
		if strings.Contains(lower, cue) {
			return inconclusive
		}
	}
	return notSymptom
}
