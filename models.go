package examprep

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptionsPerQuestion is the number of choices every multiple choice question carries.
const OptionsPerQuestion = 4

// GeneratedQuestion represents a single multiple choice question produced by the generator
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"` // text of the correct option
	Explanation   string   `json:"explanation"`
}

// Validate checks the question against the multiple choice invariant: a non-empty
// question, exactly four distinct non-empty options, and a correct answer that is
// one of the options.
func (q GeneratedQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text is empty", ErrSchemaViolation)
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%w: expected %d options, got %d", ErrSchemaViolation, OptionsPerQuestion, len(q.Options))
	}

	seen := make(map[string]bool, len(q.Options))
	for i, option := range q.Options {
		if strings.TrimSpace(option) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrSchemaViolation, i+1)
		}
		if seen[option] {
			return fmt.Errorf("%w: duplicate option %q", ErrSchemaViolation, option)
		}
		seen[option] = true
	}

	if !seen[q.CorrectAnswer] {
		return fmt.Errorf("%w: correct answer %q is not one of the options", ErrSchemaViolation, q.CorrectAnswer)
	}
	return nil
}

// IsCorrect reports whether option is the correct answer
func (q GeneratedQuestion) IsCorrect(option string) bool {
	return option == q.CorrectAnswer
}

// HasOption reports whether option is one of the question's choices
func (q GeneratedQuestion) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

func (q GeneratedQuestion) clone() GeneratedQuestion {
	q.Options = append([]string(nil), q.Options...)
	return q
}

// Flashcard is a question/answer pair for spaced review
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ContentKind selects which schema a generation request uses
type ContentKind int

const (
	KindQuestions ContentKind = iota
	KindFlashcards
	KindInterviewList
)

func (k ContentKind) String() string {
	switch k {
	case KindQuestions:
		return "questions"
	case KindFlashcards:
		return "flashcards"
	case KindInterviewList:
		return "interview"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseContentKind maps a name such as "questions" or "flashcards" to its kind
func ParseContentKind(name string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "questions", "mcq", "quiz":
		return KindQuestions, nil
	case "flashcards", "cards":
		return KindFlashcards, nil
	case "interview", "interview-questions":
		return KindInterviewList, nil
	}
	return 0, fmt.Errorf("unknown content kind: %q", name)
}

// Content holds the result of a kind-dispatched generation. Only the field
// matching Kind is populated.
type Content struct {
	Kind       ContentKind         `json:"-"`
	Topic      string              `json:"topic"`
	Questions  []GeneratedQuestion `json:"questions"`
	Flashcards []Flashcard         `json:"flashcards"`
	Interview  []string            `json:"interview_questions"`
}

// MarshalJSON writes the topic, the kind and the field matching Kind, which is
// always an array even when nothing was generated.
func (c Content) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"kind":  c.Kind.String(),
		"topic": c.Topic,
	}
	switch c.Kind {
	case KindQuestions:
		questions := c.Questions
		if questions == nil {
			questions = []GeneratedQuestion{}
		}
		out["questions"] = questions
	case KindFlashcards:
		cards := c.Flashcards
		if cards == nil {
			cards = []Flashcard{}
		}
		out["flashcards"] = cards
	case KindInterviewList:
		interview := c.Interview
		if interview == nil {
			interview = []string{}
		}
		out["interview_questions"] = interview
	}
	return json.Marshal(out)
}

// Len returns the number of generated items
func (c Content) Len() int {
	switch c.Kind {
	case KindQuestions:
		return len(c.Questions)
	case KindFlashcards:
		return len(c.Flashcards)
	default:
		return len(c.Interview)
	}
}

// FinishReason records why a quiz session ended
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"
	FinishTimeout   FinishReason = "timeout"
)

// QuizResult is the outcome of a finished quiz session
type QuizResult struct {
	ID               uuid.UUID    `json:"id"`
	Topic            string       `json:"topic"`
	Score            int          `json:"score"`
	Total            int          `json:"total"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Reason           FinishReason `json:"reason"`
	FinishedAt       time.Time    `json:"finished_at"`
}

// Percentage returns the score as a percentage of the total
func (r QuizResult) Percentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total) * 100
}

// DeckCard is a flashcard saved to a topic deck
type DeckCard struct {
	Topic     string    `json:"topic"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// InterviewEntry is a saved interview practice question
type InterviewEntry struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
