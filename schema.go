package examprep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// itemsProperty wraps array schemas; tool parameters must be a JSON object.
const itemsProperty = "items"

// toolName returns the function the model is forced to call for kind
func toolName(kind ContentKind) string {
	switch kind {
	case KindFlashcards:
		return "submit_flashcards"
	case KindInterviewList:
		return "submit_interview_questions"
	default:
		return "submit_questions"
	}
}

func toolDescription(kind ContentKind) string {
	switch kind {
	case KindFlashcards:
		return "Submit generated flashcards"
	case KindInterviewList:
		return "Submit generated interview questions"
	default:
		return "Submit generated multiple choice questions"
	}
}

// itemSchema returns the JSON schema of a single generated item
func itemSchema(kind ContentKind) map[string]interface{} {
	switch kind {
	case KindFlashcards:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The flashcard question.",
				},
				"answer": map[string]interface{}{
					"type":        "string",
					"description": "The flashcard answer.",
				},
			},
			"required": []string{"question", "answer"},
		}
	case KindInterviewList:
		return map[string]interface{}{
			"type":        "string",
			"description": "An interview question.",
		}
	default:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question text.",
				},
				"options": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"minItems":    OptionsPerQuestion,
					"maxItems":    OptionsPerQuestion,
					"description": "An array of 4 possible answers.",
				},
				"correctAnswer": map[string]interface{}{
					"type":        "string",
					"description": "The correct answer, copied exactly from the options array.",
				},
				"explanation": map[string]interface{}{
					"type":        "string",
					"description": "A brief explanation of why the answer is correct.",
				},
			},
			"required": []string{"question", "options", "correctAnswer", "explanation"},
		}
	}
}

// toolParameters returns the parameter schema of the forced tool call for kind
func toolParameters(kind ContentKind) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			itemsProperty: map[string]interface{}{
				"type":  "array",
				"items": itemSchema(kind),
			},
		},
		"required": []string{itemsProperty},
	}
}

// unwrapItems extracts the items array from the tool call arguments
func unwrapItems(arguments string) (json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tool arguments: %v", ErrSchemaViolation, err)
	}

	raw, ok := envelope[itemsProperty]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q property", ErrSchemaViolation, itemsProperty)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: %q is not an array", ErrSchemaViolation, itemsProperty)
	}
	return raw, nil
}

// ParseQuestions decodes and validates a JSON array of multiple choice
// questions. A single invalid element rejects the whole batch.
func ParseQuestions(raw []byte) ([]GeneratedQuestion, error) {
	var items []struct {
		Question      *string  `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer *string  `json:"correctAnswer"`
		Explanation   *string  `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	questions := make([]GeneratedQuestion, 0, len(items))
	for i, item := range items {
		if item.Question == nil || item.Options == nil || item.CorrectAnswer == nil || item.Explanation == nil {
			return nil, fmt.Errorf("%w: question %d is missing a required field", ErrSchemaViolation, i+1)
		}
		q := GeneratedQuestion{
			Question:      *item.Question,
			Options:       item.Options,
			CorrectAnswer: *item.CorrectAnswer,
			Explanation:   *item.Explanation,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// ParseFlashcards decodes a JSON array of flashcards
func ParseFlashcards(raw []byte) ([]Flashcard, error) {
	var items []struct {
		Question *string `json:"question"`
		Answer   *string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	cards := make([]Flashcard, 0, len(items))
	for i, item := range items {
		if item.Question == nil || item.Answer == nil ||
			strings.TrimSpace(*item.Question) == "" || strings.TrimSpace(*item.Answer) == "" {
			return nil, fmt.Errorf("%w: flashcard %d is missing a required field", ErrSchemaViolation, i+1)
		}
		cards = append(cards, Flashcard{Question: *item.Question, Answer: *item.Answer})
	}
	return cards, nil
}

// ParseInterviewQuestions decodes a JSON array of non-empty strings
func ParseInterviewQuestions(raw []byte) ([]string, error) {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return nil, fmt.Errorf("%w: interview question %d is empty", ErrSchemaViolation, i+1)
		}
	}
	return items, nil
}
