package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"examprep"

	"github.com/gorilla/sessions"
)

const emptyTopic = "Nothing"

type fakeGenerator struct{}

func (fakeGenerator) GenerateQuestions(ctx context.Context, topic string, count int) []examprep.GeneratedQuestion {
	if topic == emptyTopic {
		return nil
	}
	questions := make([]examprep.GeneratedQuestion, count)
	for i := range questions {
		questions[i] = examprep.GeneratedQuestion{
			Question:      fmt.Sprintf("%s question %d", topic, i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "B",
			Explanation:   "B is right.",
		}
	}
	return questions
}

func (fakeGenerator) GenerateFlashcards(ctx context.Context, topic string, count int) []examprep.Flashcard {
	if topic == emptyTopic {
		return []examprep.Flashcard{}
	}
	return []examprep.Flashcard{
		{Question: topic + " term", Answer: "definition"},
		{Question: topic + " date", Answer: "1826"},
	}
}

func (fakeGenerator) GenerateInterviewQuestions(ctx context.Context, topic string, count int) []string {
	if topic == emptyTopic {
		return []string{}
	}
	return []string{"Why the civil services?", "What would you change about " + topic + "?"}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	_, ts := startTestServer(t, nil)
	return ts
}

// startTestServer lets configure adjust the server before it takes requests
func startTestServer(t *testing.T, configure func(*Server)) (*Server, *httptest.Server) {
	t.Helper()

	store, err := examprep.OpenStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.CreateTables(); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	cfg := &examprep.Config{QuestionCount: 3, TimeBudget: time.Minute}
	server := NewServer(cfg, fakeGenerator{}, store, sessions.NewCookieStore([]byte("test-secret")))
	if configure != nil {
		configure(server)
	}
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(func() {
		ts.Close()
		server.Close()
		store.Close()
	})
	return server, ts
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newPlayer(t *testing.T, ts *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, base: ts.URL, client: &http.Client{Jar: jar}}
}

func (p *browser) do(method, path string, body interface{}, out interface{}) int {
	p.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			p.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, p.base+path, reader)
	if err != nil {
		p.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			p.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (p *browser) quiz(method, path string, body interface{}) quizView {
	p.t.Helper()
	var view quizView
	if status := p.do(method, path, body, &view); status != http.StatusOK {
		p.t.Fatalf("%s %s status = %d", method, path, status)
	}
	return view
}

func applied(v quizView) bool {
	return v.Applied != nil && *v.Applied
}

func TestQuizFlowHidesAnswerUntilAnswered(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	view := p.quiz(http.MethodGet, "/api/quiz", nil)
	if view.Phase != "not_started" || view.TotalQuestions != 3 || view.QuestionNumber != 1 {
		t.Fatalf("initial view = %+v", view)
	}
	if view.Topic != examprep.DefaultTopics[0] {
		t.Errorf("topic = %q, want %q", view.Topic, examprep.DefaultTopics[0])
	}
	if view.Question == nil || view.Question.CorrectAnswer != "" || view.Question.Explanation != "" {
		t.Fatalf("unanswered question leaks answer: %+v", view.Question)
	}
	if view.Remaining != "1:00" {
		t.Errorf("remaining = %q, want 1:00", view.Remaining)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/start", nil)
	if !applied(view) || view.Phase != "running" {
		t.Fatalf("start view = %+v", view)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/answer", map[string]string{"option": "B"})
	if !applied(view) || !view.Answered || view.Score != 1 {
		t.Fatalf("answer view = %+v", view)
	}
	if view.Question.CorrectAnswer != "B" || view.Question.Explanation == "" {
		t.Errorf("answered question hides answer: %+v", view.Question)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/answer", map[string]string{"option": "A"})
	if applied(view) || view.SelectedAnswer != "B" || view.Score != 1 {
		t.Fatalf("second answer was applied: %+v", view)
	}

	for i := 2; i <= 3; i++ {
		view = p.quiz(http.MethodPost, "/api/quiz/next", nil)
		if !applied(view) || view.QuestionNumber != i || view.Answered {
			t.Fatalf("next view = %+v", view)
		}
		view = p.quiz(http.MethodPost, "/api/quiz/answer", map[string]string{"option": "A"})
		if !applied(view) {
			t.Fatalf("answer %d not applied", i)
		}
	}

	if view.Phase != "finished" || view.FinishReason != examprep.FinishCompleted || view.Score != 1 {
		t.Fatalf("final view = %+v", view)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/next", nil)
	if applied(view) {
		t.Error("next applied after finish")
	}

	var results struct {
		Results []examprep.QuizResult `json:"results"`
	}
	if status := p.do(http.MethodGet, "/api/results", nil, &results); status != http.StatusOK {
		t.Fatalf("results status = %d", status)
	}
	if len(results.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(results.Results))
	}
	if r := results.Results[0]; r.Score != 1 || r.Total != 3 || r.Reason != examprep.FinishCompleted {
		t.Errorf("result = %+v", r)
	}
}

func TestSelectTopicWhileRunningConflicts(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	p.quiz(http.MethodGet, "/api/quiz", nil)
	p.quiz(http.MethodPost, "/api/quiz/start", nil)

	var body map[string]string
	status := p.do(http.MethodPost, "/api/quiz/topic", map[string]string{"topic": "Economy"}, &body)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}

	view := p.quiz(http.MethodGet, "/api/quiz", nil)
	if view.Phase != "running" || view.Topic != examprep.DefaultTopics[0] {
		t.Errorf("running quiz changed: %+v", view)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/new", nil)
	if view.Phase != "not_started" || view.Score != 0 {
		t.Errorf("new quiz view = %+v", view)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/topic", map[string]string{"topic": "Economy"})
	if view.Topic != "Economy" || view.Question.Question != "Economy question 1" {
		t.Errorf("topic view = %+v", view)
	}
}

func TestLoadFailureIsServiceUnavailable(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	var body map[string]string
	status := p.do(http.MethodPost, "/api/quiz/topic", map[string]string{"topic": emptyTopic}, &body)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if body["error"] != "failed to load questions" {
		t.Errorf("error = %q", body["error"])
	}

	view := p.quiz(http.MethodGet, "/api/quiz", nil)
	if !view.LoadFailed || view.Question != nil || view.Phase != "not_started" {
		t.Errorf("failed view = %+v", view)
	}

	view = p.quiz(http.MethodPost, "/api/quiz/start", nil)
	if applied(view) {
		t.Error("start applied without a session")
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	tests := []struct {
		path string
		body interface{}
	}{
		{"/api/quiz/topic", map[string]string{"topic": "  "}},
		{"/api/quiz/answer", map[string]string{}},
		{"/api/flashcards/generate", map[string]interface{}{"topic": "Economy", "count": 50}},
		{"/api/flashcards/generate", map[string]string{}},
	}
	for _, tt := range tests {
		if status := p.do(http.MethodPost, tt.path, tt.body, nil); status != http.StatusBadRequest {
			t.Errorf("POST %s %v status = %d, want 400", tt.path, tt.body, status)
		}
	}

	if status := p.do(http.MethodGet, "/api/results?limit=many", nil, nil); status != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", status)
	}
}

func TestPlayersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	alice := newPlayer(t, ts)
	bob := newPlayer(t, ts)

	alice.quiz(http.MethodGet, "/api/quiz", nil)
	alice.quiz(http.MethodPost, "/api/quiz/start", nil)
	alice.quiz(http.MethodPost, "/api/quiz/answer", map[string]string{"option": "B"})

	view := bob.quiz(http.MethodGet, "/api/quiz", nil)
	if view.Phase != "not_started" || view.Score != 0 || view.Answered {
		t.Errorf("bob sees alice's session: %+v", view)
	}

	view = alice.quiz(http.MethodGet, "/api/quiz", nil)
	if view.Phase != "running" || view.Score != 1 {
		t.Errorf("alice lost her session: %+v", view)
	}
}

type deckResponse struct {
	Topic     string              `json:"topic"`
	Generated int                 `json:"generated"`
	Cards     []examprep.DeckCard `json:"cards"`
}

func TestFlashcardsMergeIntoDeck(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	for i := 0; i < 2; i++ {
		var resp deckResponse
		status := p.do(http.MethodPost, "/api/flashcards/generate", map[string]interface{}{"topic": "Economy", "count": 2}, &resp)
		if status != http.StatusOK {
			t.Fatalf("generate status = %d", status)
		}
		if resp.Generated != 2 || len(resp.Cards) != 2 {
			t.Fatalf("round %d: generated %d, deck %d; want 2 and 2", i, resp.Generated, len(resp.Cards))
		}
	}

	var empty deckResponse
	if status := p.do(http.MethodPost, "/api/flashcards/generate", map[string]string{"topic": emptyTopic}, &empty); status != http.StatusOK {
		t.Fatalf("empty generate status = %d", status)
	}
	if empty.Generated != 0 || len(empty.Cards) != 0 {
		t.Errorf("empty generation = %+v", empty)
	}

	var deck deckResponse
	p.do(http.MethodGet, "/api/flashcards/Economy", nil, &deck)
	if len(deck.Cards) != 2 || deck.Cards[0].Question != "Economy term" {
		t.Errorf("deck = %+v", deck.Cards)
	}

	var topics struct {
		Topics []string `json:"topics"`
	}
	p.do(http.MethodGet, "/api/flashcards", nil, &topics)
	if len(topics.Topics) != 1 || topics.Topics[0] != "Economy" {
		t.Errorf("deck topics = %v", topics.Topics)
	}
}

func TestInterviewQuestionsAppend(t *testing.T) {
	ts := newTestServer(t)
	p := newPlayer(t, ts)

	var resp struct {
		Topic     string   `json:"topic"`
		Generated int      `json:"generated"`
		Questions []string `json:"questions"`
	}
	p.do(http.MethodPost, "/api/interview/generate", map[string]string{}, &resp)
	if resp.Topic != defaultInterviewArea || resp.Generated != 2 {
		t.Fatalf("default generate = %+v", resp)
	}
	p.do(http.MethodPost, "/api/interview/generate", map[string]string{"topic": "Tea industry"}, &resp)

	var list struct {
		Questions []examprep.InterviewEntry `json:"questions"`
	}
	if status := p.do(http.MethodGet, "/api/interview", nil, &list); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if len(list.Questions) != 4 {
		t.Fatalf("got %d interview questions, want 4", len(list.Questions))
	}
	if list.Questions[3].Topic != "Tea industry" || list.Questions[0].Topic != defaultInterviewArea {
		t.Errorf("list out of order: %+v", list.Questions)
	}
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func playerCount(s *Server) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func TestIdlePlayersAreEvicted(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	server, ts := startTestServer(t, func(s *Server) {
		s.now = clock.Now
		s.idleTimeout = time.Hour
	})
	alice := newPlayer(t, ts)
	bob := newPlayer(t, ts)

	aliceSession := alice.quiz(http.MethodGet, "/api/quiz", nil).SessionID
	bobSession := bob.quiz(http.MethodGet, "/api/quiz", nil).SessionID

	clock.Advance(50 * time.Minute)
	alice.quiz(http.MethodGet, "/api/quiz", nil)

	clock.Advance(20 * time.Minute)
	if n := server.EvictIdle(); n != 1 {
		t.Fatalf("EvictIdle() = %d, want 1", n)
	}
	if n := playerCount(server); n != 1 {
		t.Fatalf("%d players left, want 1", n)
	}

	if got := alice.quiz(http.MethodGet, "/api/quiz", nil).SessionID; got != aliceSession {
		t.Errorf("active player lost the session: %s, want %s", got, aliceSession)
	}
	view := bob.quiz(http.MethodGet, "/api/quiz", nil)
	if view.SessionID == bobSession || view.Phase != "not_started" {
		t.Errorf("evicted player kept the old engine: %+v", view)
	}
}

func TestPlayerCountIsBounded(t *testing.T) {
	server, ts := startTestServer(t, func(s *Server) {
		s.maxPlayers = 5
	})

	for i := 0; i < 20; i++ {
		resp, err := http.Get(ts.URL + "/api/quiz")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}

	if n := playerCount(server); n != 5 {
		t.Fatalf("%d players tracked, want 5", n)
	}
}
