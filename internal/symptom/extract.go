package symptom

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxLabelLength = 80

// Ordered so that specific phrases win over generic ones ("chest pain" before "pain").
var labelKeywords = []struct {
	label    string
	keywords []string
}{
	{"headache", []string{"headache", "head ache", "migraine"}},
	{"nausea", []string{"nausea", "nauseous", "queasy"}},
	{"vomiting", []string{"vomit", "throw up", "throwing up"}},
	{"dizziness", []string{"dizzy", "dizziness", "lightheaded", "light-headed", "faint"}},
	{"fatigue", []string{"tired", "exhausted", "fatigue", "sleepy", "drained"}},
	{"fever", []string{"fever", "feverish", "temperature", "chills"}},
	{"sore throat", []string{"sore throat", "scratchy throat"}},
	{"cough", []string{"cough"}},
	{"shortness of breath", []string{"short of breath", "shortness of breath", "can't breathe", "breathless"}},
	{"chest pain", []string{"chest pain", "chest tightness", "tight chest"}},
	{"back pain", []string{"back pain", "backache", "back ache", "lower back"}},
	{"stomach pain", []string{"stomach ache", "stomachache", "stomach pain", "abdominal pain", "cramp"}},
	{"insomnia", []string{"insomnia", "can't sleep", "cannot sleep", "couldn't sleep"}},
	{"anxiety", []string{"anxious", "anxiety", "panic"}},
	{"rash", []string{"rash", "itchy", "hives"}},
	{"pain", []string{"pain", "ache", "hurt", "sore"}},
}

// Words that mark a chat message as a symptom report even when no label matches.
var reportKeywords = []string{"feel", "symptom", "pain", "ache", "dizzy", "nausea", "tired", "headache", "sick", "hurt"}

var (
	severeKeywords   = []string{"severe", "really bad", "terrible", "excruciating", "unbearable", "worst"}
	moderateKeywords = []string{"moderate", "bad", "uncomfortable", "bothering"}
	mildKeywords     = []string{"mild", "slight", "a little", "bit of"}

	scorePattern = regexp.MustCompile(`\b(10|[1-9])\s*(?:/|out of)\s*10\b`)
)

// ExtractLabel returns a short symptom label for free text. Known symptoms map
// to a canonical label; anything else falls back to the trimmed text.
func ExtractLabel(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	for _, entry := range labelKeywords {
		for _, keyword := range entry.keywords {
			if containsWord(lower, keyword) {
				return entry.label
			}
		}
	}
	return truncateLabel(trimmed)
}

// ExtractSeverity looks for a "N/10" score or a severity word. It returns an
// empty string when the text says nothing about severity.
func ExtractSeverity(text string) string {
	lower := strings.ToLower(text)
	if match := scorePattern.FindStringSubmatch(lower); len(match) == 2 {
		if score, err := strconv.Atoi(match[1]); err == nil {
			return strconv.Itoa(score)
		}
	}
	for _, keyword := range severeKeywords {
		if strings.Contains(lower, keyword) {
			return "severe"
		}
	}
	for _, keyword := range moderateKeywords {
		if strings.Contains(lower, keyword) {
			return "moderate"
		}
	}
	for _, keyword := range mildKeywords {
		if strings.Contains(lower, keyword) {
			return "mild"
		}
	}
	return ""
}

// LooksLikeSymptom reports whether a chat message reads like a symptom report.
// Only the report keywords count, and only as whole words.
func LooksLikeSymptom(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range reportKeywords {
		if containsWord(lower, keyword) {
			return true
		}
	}
	return false
}

// wordSuffixes are the inflections accepted after a keyword ("hurts", "feeling").
const wordSuffixes = `(?:s|es|ed|ing|ful|ness|y)?`

var keywordPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	add := func(keyword string) {
		if _, ok := patterns[keyword]; !ok {
			patterns[keyword] = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + wordSuffixes + `\b`)
		}
	}
	for _, keyword := range reportKeywords {
		add(keyword)
	}
	for _, entry := range labelKeywords {
		for _, keyword := range entry.keywords {
			add(keyword)
		}
	}
	return patterns
}()

// containsWord matches keyword in lower on word boundaries, so "pain" finds
// "pains" and "painful" but not "painted".
func containsWord(lower, keyword string) bool {
	if pattern, ok := keywordPatterns[keyword]; ok {
		return pattern.MatchString(lower)
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + wordSuffixes + `\b`).MatchString(lower)
}

func truncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= maxLabelLength {
		return label
	}
	runes := []rune(label)
	return strings.TrimSpace(string(runes[:maxLabelLength]))
}
