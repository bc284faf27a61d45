package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/samber/lo"
)

const (
	recentSymptomLimit = 10
	// minPatternEntries is the smallest log that pattern analysis accepts.
	minPatternEntries = 4
	insightsTimeout   = 30 * time.Second
)

// HealthInsights asks for nutrition, sleep, hydration and activity tips based
// on the profile and the last logged symptoms.
func (a *Assistant) HealthInsights(ctx context.Context, sessionID string) (string, error) {
	profile, err := a.profiles.GetProfile(ctx, sessionID)
	if err != nil {
		return "", err
	}
	recent, err := a.tracker.Recent(ctx, sessionID, recentSymptomLimit)
	if err != nil {
		return "", err
	}

	descriptions := lo.Map(recent, func(e model.SymptomEntry, _ int) string { return e.Description })
	symptoms := "none logged"
	if len(descriptions) > 0 {
		symptoms = strings.Join(descriptions, "; ")
	}

	details := fmt.Sprintf("User profile:\n- Age: %s\n- Health conditions: %s\n- Allergies: %s\n- Lifestyle: %s\n\nRecent symptoms: %s",
		orDefault(profile.Age, "Not specified"),
		orDefault(profile.Conditions, "None specified"),
		orDefault(profile.Allergies, "None specified"),
		orDefault(profile.Lifestyle, "Not specified"),
		symptoms,
	)
	return a.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(llm.InsightsPrompt, details),
		Temperature: 0.7,
		Timeout:     insightsTimeout,
	})
}

// AnalyzePatterns asks for a pattern analysis of the last logged symptoms.
// It needs more than three entries and makes no call otherwise.
func (a *Assistant) AnalyzePatterns(ctx context.Context, sessionID string) (string, error) {
	count, err := a.tracker.Count(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if count < minPatternEntries {
		return "", ErrNotEnoughSymptoms
	}

	recent, err := a.tracker.Recent(ctx, sessionID, recentSymptomLimit)
	if err != nil {
		return "", err
	}
	lines := lo.Map(recent, func(e model.SymptomEntry, _ int) string {
		line := fmt.Sprintf("- %s: %s", e.Timestamp.Format("2006-01-02 15:04"), e.Description)
		if e.Severity != "" {
			line += fmt.Sprintf(" (severity: %s)", e.Severity)
		}
		return line
	})
	return a.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(llm.PatternPrompt, strings.Join(lines, "\n")),
		Temperature: 0.4,
		Timeout:     insightsTimeout,
	})
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
