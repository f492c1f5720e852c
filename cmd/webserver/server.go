package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"examprep"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "examprep-session"
	playerKey   = "player_id"

	defaultGenerateCount = 5
	maxGenerateCount     = 20
	defaultInterviewArea = "issues relevant to Assam and India"

	defaultIdleTimeout = 24 * time.Hour
	defaultMaxPlayers  = 10000
)

// contentGenerator is the part of the generator the server uses
type contentGenerator interface {
	examprep.QuestionSource
	GenerateFlashcards(ctx context.Context, topic string, count int) []examprep.Flashcard
	GenerateInterviewQuestions(ctx context.Context, topic string, count int) []string
}

type player struct {
	engine   *examprep.Engine
	lastSeen time.Time
}

// Server hosts one quiz engine per player, identified by a session cookie.
// Players not seen for the idle timeout lose their engine.
type Server struct {
	cfg         *examprep.Config
	generator   contentGenerator
	store       *examprep.Store
	sessions    sessions.Store
	idleTimeout time.Duration
	maxPlayers  int
	now         func() time.Time

	mu      sync.Mutex
	players map[string]*player
}

// NewServer creates a server
func NewServer(cfg *examprep.Config, generator contentGenerator, store *examprep.Store, sessionStore sessions.Store) *Server {
	idle := cfg.PlayerIdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Server{
		cfg:         cfg,
		generator:   generator,
		store:       store,
		sessions:    sessionStore,
		idleTimeout: idle,
		maxPlayers:  defaultMaxPlayers,
		now:         time.Now,
		players:     make(map[string]*player),
	}
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/topics", s.handleTopics).Methods(http.MethodGet)

	api.HandleFunc("/quiz", s.handleQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quiz/topic", s.handleSelectTopic).Methods(http.MethodPost)
	api.HandleFunc("/quiz/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/quiz/answer", s.handleAnswer).Methods(http.MethodPost)
	api.HandleFunc("/quiz/next", s.handleNext).Methods(http.MethodPost)
	api.HandleFunc("/quiz/new", s.handleNewQuiz).Methods(http.MethodPost)

	api.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)

	api.HandleFunc("/flashcards", s.handleDeckTopics).Methods(http.MethodGet)
	api.HandleFunc("/flashcards/generate", s.handleGenerateFlashcards).Methods(http.MethodPost)
	api.HandleFunc("/flashcards/{topic}", s.handleFlashcards).Methods(http.MethodGet)

	api.HandleFunc("/interview", s.handleInterview).Methods(http.MethodGet)
	api.HandleFunc("/interview/generate", s.handleGenerateInterview).Methods(http.MethodPost)

	return r
}

// Close stops every player's engine
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		p.engine.Close()
		delete(s.players, id)
	}
}

// EvictIdle closes the engines of players not seen for the idle timeout and
// returns how many were removed.
func (s *Server) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTimeout)
	evicted := 0
	for id, p := range s.players {
		if p.lastSeen.Before(cutoff) {
			p.engine.Close()
			delete(s.players, id)
			evicted++
		}
	}
	return evicted
}

// RunEvictor sweeps idle players every interval until ctx is done
func (s *Server) RunEvictor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				log.Printf("[HTTP] Evicted %d idle players", n)
			}
		}
	}
}

// evictOldestLocked drops the least recently seen player
func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, p := range s.players {
		if oldestID == "" || p.lastSeen.Before(oldest) {
			oldestID, oldest = id, p.lastSeen
		}
	}
	if oldestID != "" {
		s.players[oldestID].engine.Close()
		delete(s.players, oldestID)
		examprep.VerboseLog("Evicted player %s to make room", oldestID)
	}
}

// playerEngine returns the engine of the requesting player, creating the
// player and the engine on first contact.
func (s *Server) playerEngine(w http.ResponseWriter, r *http.Request) (*examprep.Engine, bool, error) {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		log.Printf("[HTTP] Discarding unreadable session cookie: %v", err)
	}

	id, _ := session.Values[playerKey].(string)
	if id == "" {
		id = uuid.NewString()
		session.Values[playerKey] = id
		log.Printf("[HTTP] New player %s", id)
	}
	// re-save so the cookie expiry follows lastSeen
	if err := session.Save(r, w); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		if len(s.players) >= s.maxPlayers {
			s.evictOldestLocked()
		}
		opts := append(s.cfg.EngineOptions(), examprep.WithResultRecorder(s.store))
		p = &player{engine: examprep.NewEngine(s.generator, opts...)}
		s.players[id] = p
	}
	p.lastSeen = s.now()
	return p.engine, !ok, nil
}

func (s *Server) withEngine(w http.ResponseWriter, r *http.Request) (*examprep.Engine, bool) {
	engine, created, err := s.playerEngine(w, r)
	if err != nil {
		log.Printf("[HTTP] Failed to save session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return nil, false
	}
	if created {
		// first contact loads the default topic, like opening the quiz tool
		if err := engine.NewQuiz(r.Context()); err != nil {
			log.Printf("[HTTP] Initial quiz load failed: %v", err)
		}
	}
	return engine, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": examprep.DefaultTopics})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	s.writeQuiz(w, http.StatusOK, engine.Snapshot(), nil)
}

func (s *Server) handleSelectTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	engine, _, err := s.playerEngine(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	s.writeLoad(w, engine, engine.SelectTopic(r.Context(), strings.TrimSpace(req.Topic)))
}

func (s *Server) handleNewQuiz(w http.ResponseWriter, r *http.Request) {
	engine, _, err := s.playerEngine(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	s.writeLoad(w, engine, engine.NewQuiz(r.Context()))
}

func (s *Server) writeLoad(w http.ResponseWriter, engine *examprep.Engine, err error) {
	snap := engine.Snapshot()
	switch {
	case err == nil:
		s.writeQuiz(w, http.StatusOK, snap, nil)
	case errors.Is(err, examprep.ErrNoQuestions):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, examprep.ErrQuizInProgress), errors.Is(err, examprep.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, examprep.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[HTTP] Quiz load failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load quiz")
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	applied := engine.Start()
	s.writeQuiz(w, http.StatusOK, engine.Snapshot(), &applied)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == "" {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}

	engine, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	applied := engine.SelectAnswer(req.Option)
	s.writeQuiz(w, http.StatusOK, engine.Snapshot(), &applied)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	applied := engine.Advance()
	s.writeQuiz(w, http.StatusOK, engine.Snapshot(), &applied)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	results, err := s.store.RecentResults(r.Context(), limit)
	if err != nil {
		log.Printf("[HTTP] Failed to get results: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get results")
		return
	}
	if results == nil {
		results = []examprep.QuizResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type generateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

func decodeGenerateRequest(r *http.Request, defaultTopic string) (generateRequest, error) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		req.Topic = defaultTopic
	}
	if req.Topic == "" {
		return req, errors.New("topic is required")
	}
	if req.Count == 0 {
		req.Count = defaultGenerateCount
	}
	if req.Count < 0 || req.Count > maxGenerateCount {
		return req, errors.New("count must be between 1 and 20")
	}
	return req, nil
}

func (s *Server) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cards := s.generator.GenerateFlashcards(r.Context(), req.Topic, req.Count)
	if err := s.store.AddFlashcards(r.Context(), req.Topic, cards); err != nil {
		log.Printf("[HTTP] Failed to save flashcards: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save flashcards")
		return
	}

	deck, err := s.store.Flashcards(r.Context(), req.Topic)
	if err != nil {
		log.Printf("[HTTP] Failed to get flashcards: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get flashcards")
		return
	}
	if deck == nil {
		deck = []examprep.DeckCard{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topic":     req.Topic,
		"generated": len(cards),
		"cards":     deck,
	})
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	deck, err := s.store.Flashcards(r.Context(), topic)
	if err != nil {
		log.Printf("[HTTP] Failed to get flashcards: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get flashcards")
		return
	}
	if deck == nil {
		deck = []examprep.DeckCard{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topic": topic, "cards": deck})
}

func (s *Server) handleDeckTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.store.DeckTopics(r.Context())
	if err != nil {
		log.Printf("[HTTP] Failed to get deck topics: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get deck topics")
		return
	}
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (s *Server) handleGenerateInterview(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r, defaultInterviewArea)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions := s.generator.GenerateInterviewQuestions(r.Context(), req.Topic, req.Count)
	if err := s.store.AddInterviewQuestions(r.Context(), req.Topic, questions); err != nil {
		log.Printf("[HTTP] Failed to save interview questions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save interview questions")
		return
	}
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topic":     req.Topic,
		"generated": len(questions),
		"questions": questions,
	})
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.InterviewQuestions(r.Context())
	if err != nil {
		log.Printf("[HTTP] Failed to get interview questions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get interview questions")
		return
	}
	if entries == nil {
		entries = []examprep.InterviewEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": entries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
