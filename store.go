package examprep

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists quiz results, flashcard decks and interview questions in SQLite
type Store struct {
	db *sql.DB
}

// OpenStore opens a new database connection
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (s *Store) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quiz_results (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			remaining_seconds INTEGER NOT NULL,
			reason TEXT NOT NULL,
			finished_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flashcards (
			topic TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (topic, question)
		)`,
		`CREATE TABLE IF NOT EXISTS interview_questions (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// RecordResult stores the result of a finished quiz session
func (s *Store) RecordResult(ctx context.Context, result QuizResult) error {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO quiz_results (id, topic, score, total, remaining_seconds, reason, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		result.ID.String(), result.Topic, result.Score, result.Total, result.RemainingSeconds, string(result.Reason), result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record quiz result: %w", err)
	}
	return nil
}

// RecentResults retrieves the latest quiz results, newest first. A limit of
// zero or less returns all of them.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]QuizResult, error) {
	query := "SELECT id, topic, score, total, remaining_seconds, reason, finished_at FROM quiz_results ORDER BY finished_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	defer rows.Close()

	var results []QuizResult
	for rows.Next() {
		var (
			r      QuizResult
			id     string
			reason string
		)
		if err := rows.Scan(&id, &r.Topic, &r.Score, &r.Total, &r.RemainingSeconds, &reason, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz result: %w", err)
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quiz result id %q: %w", id, err)
		}
		r.Reason = FinishReason(reason)
		results = append(results, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quiz results: %w", err)
	}
	return results, nil
}

// AddFlashcards merges cards into the topic's deck. A card whose question is
// already in the deck replaces its answer.
func (s *Store) AddFlashcards(ctx context.Context, topic string, cards []Flashcard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, card := range cards {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO flashcards (topic, question, answer, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(topic, question) DO UPDATE SET answer = excluded.answer`,
			topic, strings.TrimSpace(card.Question), strings.TrimSpace(card.Answer), now,
		)
		if err != nil {
			return fmt.Errorf("failed to add flashcard: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flashcards: %w", err)
	}
	return nil
}

// Flashcards retrieves the deck for a topic in insertion order
func (s *Store) Flashcards(ctx context.Context, topic string) ([]DeckCard, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT topic, question, answer, created_at FROM flashcards WHERE topic = ? ORDER BY rowid",
		topic,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcards: %w", err)
	}
	defer rows.Close()

	var cards []DeckCard
	for rows.Next() {
		var card DeckCard
		if err := rows.Scan(&card.Topic, &card.Question, &card.Answer, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flashcard: %w", err)
		}
		cards = append(cards, card)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flashcards: %w", err)
	}
	return cards, nil
}

// DeckTopics lists the topics that have at least one flashcard
func (s *Store) DeckTopics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT topic FROM flashcards ORDER BY topic")
	if err != nil {
		return nil, fmt.Errorf("failed to get deck topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("failed to scan deck topic: %w", err)
		}
		topics = append(topics, topic)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck topics: %w", err)
	}
	return topics, nil
}

// AddInterviewQuestions appends questions to the saved interview list
func (s *Store) AddInterviewQuestions(ctx context.Context, topic string, questions []string) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, q := range questions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO interview_questions (id, topic, text, created_at) VALUES (?, ?, ?, ?)",
			uuid.NewString(), topic, strings.TrimSpace(q), now,
		)
		if err != nil {
			return fmt.Errorf("failed to add interview question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interview questions: %w", err)
	}
	return nil
}

// InterviewQuestions retrieves all saved interview questions in insertion order
func (s *Store) InterviewQuestions(ctx context.Context) ([]InterviewEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, topic, text, created_at FROM interview_questions ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to get interview questions: %w", err)
	}
	defer rows.Close()

	var entries []InterviewEntry
	for rows.Next() {
		var e InterviewEntry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interview question: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interview questions: %w", err)
	}
	return entries, nil
}
