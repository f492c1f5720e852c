package examprep

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultQuestionCount is the size of a quiz batch
	DefaultQuestionCount = 5
	// DefaultTimeBudget is the countdown a quiz starts with
	DefaultTimeBudget = 10 * time.Minute
)

// DefaultTopics are the topics offered before the user picks one
var DefaultTopics = []string{
	"History of Assam",
	"Indian Polity",
	"Geography of India",
	"Economy",
	"Environment",
}

// QuestionSource supplies quiz questions. Implementations absorb their own
// failures; an empty result means no session can be started.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, topic string, count int) []GeneratedQuestion
}

// ResultRecorder persists the outcome of finished sessions
type ResultRecorder interface {
	RecordResult(ctx context.Context, result QuizResult) error
}

// Snapshot is a read-only copy of the engine state
type Snapshot struct {
	Topic      string       `json:"topic"`
	Loading    bool         `json:"loading"`
	LoadFailed bool         `json:"load_failed"`
	Session    *QuizSession `json:"session,omitempty"`
}

// Phase returns the session phase, or PhaseNotStarted when there is no session
func (s Snapshot) Phase() Phase {
	if s.Session == nil {
		return PhaseNotStarted
	}
	return s.Session.Phase
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithQuestionCount sets how many questions each retrieval asks for
func WithQuestionCount(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.count = n
		}
	}
}

// WithTimeBudget sets the countdown each session starts with, rounded down to whole seconds
func WithTimeBudget(d time.Duration) EngineOption {
	return func(e *Engine) {
		if s := int(d / time.Second); s > 0 {
			e.budget = s
		}
	}
}

// WithClock replaces the wall clock driving the countdown
func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithInitialTopic sets the topic used before SelectTopic is called
func WithInitialTopic(topic string) EngineOption {
	return func(e *Engine) { e.topic = topic }
}

// WithChangeHandler registers fn to receive a snapshot after every state change.
// fn is called without the engine lock held and may call back into the engine.
func WithChangeHandler(fn func(Snapshot)) EngineOption {
	return func(e *Engine) { e.onChange = fn }
}

// WithResultRecorder stores each finished session's result
func WithResultRecorder(r ResultRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// Engine runs one timed multiple choice quiz at a time. All methods are safe
// for concurrent use.
type Engine struct {
	source   QuestionSource
	count    int
	budget   int
	clock    Clock
	onChange func(Snapshot)
	recorder ResultRecorder

	mu         sync.Mutex
	topic      string
	session    *QuizSession
	loading    bool
	loadFailed bool
	loadSeq    uint64
	cancelLoad context.CancelFunc
	stopTimer  context.CancelFunc
	closed     bool
}

// NewEngine creates an engine with no session. Call Load, SelectTopic or
// NewQuiz to retrieve the first batch.
func NewEngine(source QuestionSource, opts ...EngineOption) *Engine {
	e := &Engine{
		source: source,
		count:  DefaultQuestionCount,
		budget: int(DefaultTimeBudget / time.Second),
		clock:  SystemClock,
		topic:  DefaultTopics[0],
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Topic:      e.topic,
		Loading:    e.loading,
		LoadFailed: e.loadFailed,
	}
	if e.session != nil {
		snap.Session = e.session.clone()
	}
	return snap
}

// Load retrieves a fresh batch for topic and replaces the current session with
// a NotStarted one. The previous session is abandoned as soon as the retrieval
// begins. If another retrieval starts before this one resolves, this one's
// context is cancelled, its result is discarded and ErrSuperseded is returned.
// ErrNoQuestions is returned when the source yields nothing. Cancelling ctx
// does not cancel the retrieval; only a newer retrieval or Close does.
func (e *Engine) Load(ctx context.Context, topic string) error {
	return e.load(ctx, topic, false)
}

func (e *Engine) load(ctx context.Context, topic string, requireIdle bool) error {
	if strings.TrimSpace(topic) == "" {
		return ErrInvalidRequest
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if requireIdle && e.session != nil && e.session.Phase == PhaseRunning {
		e.mu.Unlock()
		return ErrQuizInProgress
	}
	if e.cancelLoad != nil {
		e.cancelLoad()
	}
	e.stopTimerLocked()
	e.loadSeq++
	seq := e.loadSeq
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancelLoad = cancel
	e.topic = topic
	e.session = nil
	e.loading = true
	e.loadFailed = false
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snap)
	VerboseLog("Loading %d questions for topic %q (request %d)", e.count, topic, seq)

	questions := e.source.GenerateQuestions(loadCtx, topic, e.count)
	cancel()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if seq != e.loadSeq {
		e.mu.Unlock()
		VerboseLog("Discarding stale questions for topic %q (request %d)", topic, seq)
		return ErrSuperseded
	}
	e.cancelLoad = nil
	e.loading = false

	var err error
	if len(questions) == 0 {
		e.loadFailed = true
		err = ErrNoQuestions
		logQuiz("No questions available for topic %q", topic)
	} else {
		e.session = newSession(topic, questions, e.budget)
		logQuiz("Session %s ready: %d questions on %q", e.session.ID, len(questions), topic)
	}
	snap = e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snap)
	return err
}

// SelectTopic switches to topic and retrieves a new batch for it. The topic
// cannot be changed while a quiz is running.
func (e *Engine) SelectTopic(ctx context.Context, topic string) error {
	return e.load(ctx, topic, true)
}

// NewQuiz discards the current session and retrieves a new batch for the
// current topic.
func (e *Engine) NewQuiz(ctx context.Context) error {
	e.mu.Lock()
	topic := e.topic
	e.mu.Unlock()

	return e.Load(ctx, topic)
}

// Start begins the countdown of a NotStarted session
func (e *Engine) Start() bool {
	e.mu.Lock()
	s := e.session
	if s == nil || e.closed || !s.start() {
		e.mu.Unlock()
		return false
	}

	timerCtx, cancel := context.WithCancel(context.Background())
	e.stopTimer = cancel
	go e.runTimer(timerCtx, s.ID, e.clock.NewTicker(time.Second))

	snap := e.snapshotLocked()
	e.mu.Unlock()

	logQuiz("Session %s started with %s on the clock", s.ID, FormatRemaining(s.RemainingSeconds))
	e.notify(snap)
	return true
}

// SelectAnswer records option as the answer to the current question. Only the
// first selection per question counts; it reports whether this one did.
func (e *Engine) SelectAnswer(option string) bool {
	e.mu.Lock()
	s := e.session
	if s == nil || !s.selectAnswer(option) {
		e.mu.Unlock()
		return false
	}
	result := e.finishedLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.record(result)
	e.notify(snap)
	return true
}

// Advance moves to the next question once the current one is answered
func (e *Engine) Advance() bool {
	e.mu.Lock()
	s := e.session
	if s == nil || !s.advance() {
		e.mu.Unlock()
		return false
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snap)
	return true
}

// Close abandons the session, stopping its timer and any in-flight retrieval
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopTimerLocked()
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
}

func (e *Engine) runTimer(ctx context.Context, id uuid.UUID, t Ticker) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if !e.tick(id) {
				return
			}
		}
	}
}

// tick applies one second to session id and reports whether its timer should keep running
func (e *Engine) tick(id uuid.UUID) bool {
	e.mu.Lock()
	s := e.session
	if s == nil || s.ID != id || !s.tick() {
		e.mu.Unlock()
		return false
	}
	running := s.Phase == PhaseRunning
	result := e.finishedLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.record(result)
	e.notify(snap)
	return running
}

// finishedLocked stops the timer and returns the result if the session just finished
func (e *Engine) finishedLocked() *QuizResult {
	if e.session == nil || e.session.Phase != PhaseFinished {
		return nil
	}
	e.stopTimerLocked()
	r := e.session.result()
	logQuiz("Session %s finished (%s): %d/%d", r.ID, r.Reason, r.Score, r.Total)
	return &r
}

func (e *Engine) stopTimerLocked() {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}

func (e *Engine) record(result *QuizResult) {
	if result == nil || e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.RecordResult(ctx, *result); err != nil {
		logQuiz("Failed to record result for session %s: %v", result.ID, err)
	}
}

func (e *Engine) notify(snap Snapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}
