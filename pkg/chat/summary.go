package chat

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UntitledChat is the summary of a chat without usable keywords.
const UntitledChat = "Untitled Chat"

const (
	summaryWindow   = 10
	summaryKeywords = 5
)

// Summarize picks up to five distinct words longer than three letters from
// the last ten messages, in order of first appearance, title-cased.
func Summarize(messages []string) string {
	if len(messages) > summaryWindow {
		messages = messages[len(messages)-summaryWindow:]
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(strings.Join(messages, " "))) {
		w = strings.Trim(w, ".,!?()[]")
		if len(w) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == summaryKeywords {
			break
		}
	}

	if len(keywords) == 0 {
		return UntitledChat
	}
	// a Caser is stateful, so each call gets its own
	return cases.Title(language.English).String(strings.Join(keywords, ", "))
}
