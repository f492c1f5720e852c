package main

import (
	"net/http"

	"examprep"
)

type questionView struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// quizView is what a player sees of their session. The correct answer and
// explanation stay hidden until the current question has been answered.
type quizView struct {
	Topic            string                `json:"topic"`
	Loading          bool                  `json:"loading"`
	LoadFailed       bool                  `json:"load_failed"`
	Applied          *bool                 `json:"applied,omitempty"`
	Phase            string                `json:"phase"`
	SessionID        string                `json:"session_id,omitempty"`
	Question         *questionView         `json:"question,omitempty"`
	QuestionNumber   int                   `json:"question_number"`
	TotalQuestions   int                   `json:"total_questions"`
	IsLastQuestion   bool                  `json:"is_last_question"`
	SelectedAnswer   string                `json:"selected_answer,omitempty"`
	Answered         bool                  `json:"answered"`
	Score            int                   `json:"score"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	Remaining        string                `json:"remaining"`
	FinishReason     examprep.FinishReason `json:"finish_reason,omitempty"`
}

func newQuizView(snap examprep.Snapshot, applied *bool) quizView {
	view := quizView{
		Topic:      snap.Topic,
		Loading:    snap.Loading,
		LoadFailed: snap.LoadFailed,
		Applied:    applied,
		Phase:      snap.Phase().String(),
	}

	session := snap.Session
	if session == nil {
		return view
	}

	view.SessionID = session.ID.String()
	view.TotalQuestions = len(session.Questions)
	view.SelectedAnswer = session.SelectedAnswer
	view.Answered = session.Answered
	view.Score = session.Score
	view.RemainingSeconds = session.RemainingSeconds
	view.Remaining = examprep.FormatRemaining(session.RemainingSeconds)
	view.FinishReason = session.FinishReason

	if len(session.Questions) > 0 {
		current := session.Current()
		q := &questionView{
			Question: current.Question,
			Options:  current.Options,
		}
		if session.Answered || session.Phase == examprep.PhaseFinished {
			q.CorrectAnswer = current.CorrectAnswer
			q.Explanation = current.Explanation
		}
		view.Question = q
		view.QuestionNumber = session.CurrentIndex + 1
		view.IsLastQuestion = session.IsLastQuestion()
	}
	return view
}

func (s *Server) writeQuiz(w http.ResponseWriter, status int, snap examprep.Snapshot, applied *bool) {
	writeJSON(w, status, newQuizView(snap, applied))
}
