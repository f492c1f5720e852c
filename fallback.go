package examprep

// FallbackQuestions returns the batch served when question generation fails.
// It is the same single answerable question on every call; the returned slice is
// a fresh copy.
func FallbackQuestions() []GeneratedQuestion {
	return []GeneratedQuestion{
		{
			Question:      "What is the capital of Assam?",
			Options:       []string{"Guwahati", "Dispur", "Dibrugarh", "Silchar"},
			CorrectAnswer: "Dispur",
			Explanation:   "Dispur, a locality of Guwahati, became the capital of Assam in 1973.",
		},
	}
}

// fallbackContent returns the degraded result for kind. Flashcards and
// interview questions degrade to an empty list, meaning nothing was produced.
func fallbackContent(kind ContentKind, topic string) Content {
	c := Content{Kind: kind, Topic: topic}
	switch kind {
	case KindQuestions:
		c.Questions = FallbackQuestions()
	case KindFlashcards:
		c.Flashcards = []Flashcard{}
	case KindInterviewList:
		c.Interview = []string{}
	}
	return c
}
