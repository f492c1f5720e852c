package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"examprep"
)

type staticSource []examprep.GeneratedQuestion

func (s staticSource) GenerateQuestions(ctx context.Context, topic string, count int) []examprep.GeneratedQuestion {
	return s
}

func twoQuestions() staticSource {
	return staticSource{
		{
			Question:      "Which river flows through Guwahati?",
			Options:       []string{"Barak", "Brahmaputra", "Ganga", "Teesta"},
			CorrectAnswer: "Brahmaputra",
			Explanation:   "Guwahati lies on the south bank of the Brahmaputra.",
		},
		{
			Question:      "Who founded the Ahom kingdom?",
			Options:       []string{"Sukaphaa", "Lachit Borphukan", "Rudra Singha", "Naranarayan"},
			CorrectAnswer: "Sukaphaa",
		},
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"A", 0, true},
		{" d ", 3, true},
		{"b", 1, true},
		{"E", 0, false},
		{"", 0, false},
		{"AB", 0, false},
		{"1", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseChoice(tt.input, 4)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseChoice(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFeedbackBands(t *testing.T) {
	for pct, want := range map[float64]string{
		100: "Excellent",
		80:  "Excellent",
		79:  "Good job",
		60:  "Good job",
		59:  "Keep studying",
		0:   "Keep studying",
	} {
		if got := feedback(pct); !strings.Contains(got, want) {
			t.Errorf("feedback(%v) = %q, want %q", pct, got, want)
		}
	}
}

func TestRunPlayCompletes(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\nb\nx\nC\n")

	err := runPlay(context.Background(), twoQuestions(), "History of Assam", nil, in, &out)
	if err != nil {
		t.Fatalf("runPlay: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Question 1/2",
		"✅ Correct!",
		"Please enter A, B, C, or D",
		"The correct answer is Sukaphaa",
		"🎉 Quiz completed!",
		"Score: 1/2 (50.0%)",
		"Keep studying",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunPlayTimesOut(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	go pw.Write([]byte("\n"))

	var out bytes.Buffer
	opts := []examprep.EngineOption{examprep.WithTimeBudget(time.Second)}

	done := make(chan error, 1)
	go func() {
		done <- runPlay(context.Background(), twoQuestions(), "History of Assam", opts, pr, &out)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runPlay: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("quiz did not time out")
	}

	text := out.String()
	if !strings.Contains(text, "Time's up!") || !strings.Contains(text, "Score: 0/2") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestRunPlayInputClosed(t *testing.T) {
	var out bytes.Buffer
	err := runPlay(context.Background(), twoQuestions(), "History of Assam", nil, strings.NewReader("\nB\n"), &out)
	if !errors.Is(err, errInputClosed) {
		t.Fatalf("error = %v, want errInputClosed", err)
	}
}

func TestRunPlayNoQuestions(t *testing.T) {
	var out bytes.Buffer
	err := runPlay(context.Background(), staticSource{}, "History of Assam", nil, strings.NewReader("\n"), &out)
	if !errors.Is(err, examprep.ErrNoQuestions) {
		t.Fatalf("error = %v, want ErrNoQuestions", err)
	}
}
