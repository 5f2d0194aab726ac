package practice

import "strings"

const (
	FeedbackPerfect      = "Perfect! That's the correct sentence."
	FeedbackWordCount    = "Not quite. Try arranging the words differently."
	FeedbackPerfectOrder = "Excellent! Perfect word order."
	FeedbackOrderMatters = "Keep trying! The correct order is important."
)

// Evaluation is the verdict on one word-builder attempt.
type Evaluation struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

var punctuation = strings.NewReplacer(
	".", "", ",", "", "!", "", "?", "", ";", "", ":", "",
)

func normalize(s string) string {
	return punctuation.Replace(strings.TrimSpace(strings.ToLower(s)))
}

// Evaluate compares a user's sentence with the target, ignoring case,
// surrounding space and the marks . , ! ? ; :
func Evaluate(userSentence, targetSentence string) Evaluation {
	user, target := normalize(userSentence), normalize(targetSentence)
	if user == target {
		return Evaluation{Correct: true, Feedback: FeedbackPerfect}
	}

	userWords, targetWords := strings.Fields(user), strings.Fields(target)
	if len(userWords) != len(targetWords) {
		return Evaluation{Correct: false, Feedback: FeedbackWordCount}
	}

	for i := range userWords {
		if userWords[i] != targetWords[i] {
			return Evaluation{Correct: false, Feedback: FeedbackOrderMatters}
		}
	}
	return Evaluation{Correct: true, Feedback: FeedbackPerfectOrder}
}
