package assistant

import "strings"

// FollowupPredicate decides whether a spoken response invites a reply,
// gating the automatic re-listen after a turn.
type FollowupPredicate func(response string) bool

// DefaultQuestionPhrases are the markers that make a response count as a
// question to the user.
var DefaultQuestionPhrases = []string{
	"would you like",
	"do you want",
	"shall i",
	"should i",
	"can you tell me",
	"which one",
	"anything else",
	"what would you",
}

// QuestionPhrasePredicate returns a predicate that matches responses
// containing any of the phrases or ending in a question mark.
func QuestionPhrasePredicate(phrases []string) FollowupPredicate {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return func(response string) bool {
		text := strings.ToLower(strings.TrimSpace(response))
		if text == "" {
			return false
		}
		if strings.HasSuffix(text, "?") {
			return true
		}
		for _, p := range lowered {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}
