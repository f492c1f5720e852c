package examprep

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle state of a quiz session
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase by name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// QuizSession is one timed run through a fixed batch of questions. The engine
// replaces it wholesale on every retrieval; the state-changing methods below
// are only called with the engine's lock held.
type QuizSession struct {
	ID               uuid.UUID           `json:"id"`
	Topic            string              `json:"topic"`
	Questions        []GeneratedQuestion `json:"questions"`
	CurrentIndex     int                 `json:"current_index"`
	SelectedAnswer   string              `json:"selected_answer,omitempty"`
	Answered         bool                `json:"answered"`
	Score            int                 `json:"score"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Phase            Phase               `json:"phase"`
	FinishReason     FinishReason        `json:"finish_reason,omitempty"`
	FinishedAt       time.Time           `json:"finished_at"`
}

func newSession(topic string, questions []GeneratedQuestion, budgetSeconds int) *QuizSession {
	batch := make([]GeneratedQuestion, len(questions))
	for i, q := range questions {
		batch[i] = q.clone()
	}
	return &QuizSession{
		ID:               uuid.New(),
		Topic:            topic,
		Questions:        batch,
		RemainingSeconds: budgetSeconds,
		Phase:            PhaseNotStarted,
	}
}

// Current returns the question at CurrentIndex
func (s *QuizSession) Current() GeneratedQuestion {
	return s.Questions[s.CurrentIndex]
}

// IsLastQuestion reports whether the current question is the final one
func (s *QuizSession) IsLastQuestion() bool {
	return s.CurrentIndex == len(s.Questions)-1
}

func (s *QuizSession) start() bool {
	if s.Phase != PhaseNotStarted {
		return false
	}
	s.Phase = PhaseRunning
	return true
}

// selectAnswer locks in the first answer for the current question and scores
// it. Later selections for the same question are ignored.
func (s *QuizSession) selectAnswer(option string) bool {
	if s.Phase != PhaseRunning || s.Answered {
		return false
	}
	current := s.Current()
	if !current.HasOption(option) {
		return false
	}

	s.SelectedAnswer = option
	s.Answered = true
	if current.IsCorrect(option) {
		s.Score++
	}
	if s.IsLastQuestion() {
		s.finish(FinishCompleted)
	}
	return true
}

func (s *QuizSession) advance() bool {
	if s.Phase != PhaseRunning || !s.Answered || s.IsLastQuestion() {
		return false
	}
	s.CurrentIndex++
	s.SelectedAnswer = ""
	s.Answered = false
	return true
}

// tick removes one second from the countdown, finishing the session when it
// reaches zero.
func (s *QuizSession) tick() bool {
	if s.Phase != PhaseRunning {
		return false
	}
	if s.RemainingSeconds > 0 {
		s.RemainingSeconds--
	}
	if s.RemainingSeconds == 0 {
		s.finish(FinishTimeout)
	}
	return true
}

func (s *QuizSession) finish(reason FinishReason) {
	s.Phase = PhaseFinished
	s.FinishReason = reason
	s.FinishedAt = time.Now()
}

func (s *QuizSession) result() QuizResult {
	return QuizResult{
		ID:               s.ID,
		Topic:            s.Topic,
		Score:            s.Score,
		Total:            len(s.Questions),
		RemainingSeconds: s.RemainingSeconds,
		Reason:           s.FinishReason,
		FinishedAt:       s.FinishedAt,
	}
}

func (s *QuizSession) clone() *QuizSession {
	c := *s
	c.Questions = make([]GeneratedQuestion, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.clone()
	}
	return &c
}

// FormatRemaining renders seconds as m:ss
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
