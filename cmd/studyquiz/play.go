package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"examprep"
)

const optionLetters = "ABCD"

var errInputClosed = errors.New("input closed before the quiz finished")

// runPlay loads a batch for topic and plays it on the terminal against the
// real countdown.
func runPlay(ctx context.Context, source examprep.QuestionSource, topic string, opts []examprep.EngineOption, in io.Reader, out io.Writer) error {
	finished := make(chan examprep.Snapshot, 1)
	opts = append(opts, examprep.WithChangeHandler(func(snap examprep.Snapshot) {
		if snap.Phase() != examprep.PhaseFinished {
			return
		}
		select {
		case finished <- snap:
		default:
		}
	}))

	engine := examprep.NewEngine(source, opts...)
	defer engine.Close()

	fmt.Fprintf(out, "🎯 Starting timed quiz on: %s\n", topic)
	fmt.Fprintln(out, "⏳ Generating questions... (this may take a moment)")
	if err := engine.Load(ctx, topic); err != nil {
		return fmt.Errorf("failed to start quiz: %w", err)
	}

	snap, err := playQuiz(engine, finished, readLines(in), out)
	if err != nil {
		return err
	}
	printSummary(out, snap)
	return nil
}

// readLines delivers input lines until EOF, then closes the channel
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// playQuiz drives a loaded engine from input lines until the session finishes
func playQuiz(engine *examprep.Engine, finished <-chan examprep.Snapshot, lines <-chan string, out io.Writer) (examprep.Snapshot, error) {
	snap := engine.Snapshot()
	if snap.Session == nil {
		return snap, examprep.ErrNoQuestions
	}

	fmt.Fprintf(out, "📝 Questions: %d, Time: %s\n", len(snap.Session.Questions), examprep.FormatRemaining(snap.Session.RemainingSeconds))
	fmt.Fprintln(out, "Press Enter to start the clock...")
	if _, ok := <-lines; !ok {
		return snap, errInputClosed
	}
	engine.Start()

	for {
		snap = engine.Snapshot()
		s := snap.Session
		if s == nil || s.Phase == examprep.PhaseFinished {
			return snap, nil
		}

		q := s.Current()
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Question %d/%d  ⏱ %s left\n", s.CurrentIndex+1, len(s.Questions), examprep.FormatRemaining(s.RemainingSeconds))
		fmt.Fprintf(out, "%s\n\n", q.Question)
		for i, option := range q.Options {
			fmt.Fprintf(out, "%c) %s\n", optionLetters[i], option)
		}
		fmt.Fprintln(out)

		var choice int
	prompt:
		for {
			fmt.Fprint(out, "Your answer (A/B/C/D): ")
			select {
			case line, ok := <-lines:
				if !ok {
					return engine.Snapshot(), errInputClosed
				}
				var valid bool
				if choice, valid = parseChoice(line, len(q.Options)); valid {
					break prompt
				}
				fmt.Fprintln(out, "Please enter A, B, C, or D")
			case snap = <-finished:
				fmt.Fprintln(out)
				return snap, nil
			}
		}

		if !engine.SelectAnswer(q.Options[choice]) {
			// the clock ran out first
			continue
		}

		if q.IsCorrect(q.Options[choice]) {
			fmt.Fprintln(out, "✅ Correct!")
		} else {
			fmt.Fprintf(out, "❌ Incorrect. The correct answer is %s\n", q.CorrectAnswer)
		}
		if q.Explanation != "" {
			fmt.Fprintf(out, "💡 Explanation: %s\n", q.Explanation)
		}
		fmt.Fprintln(out, strings.Repeat("─", 50))

		engine.Advance()
	}
}

// parseChoice maps an answer letter to an option index
func parseChoice(input string, options int) (int, bool) {
	input = strings.ToUpper(strings.TrimSpace(input))
	if len(input) != 1 {
		return 0, false
	}
	i := strings.Index(optionLetters, input)
	if i < 0 || i >= options {
		return 0, false
	}
	return i, true
}

func printSummary(out io.Writer, snap examprep.Snapshot) {
	s := snap.Session
	if s == nil {
		return
	}

	if s.FinishReason == examprep.FinishTimeout {
		fmt.Fprintln(out, "⏰ Time's up!")
	} else {
		fmt.Fprintln(out, "🎉 Quiz completed!")
	}

	percentage := 0.0
	if len(s.Questions) > 0 {
		percentage = float64(s.Score) / float64(len(s.Questions)) * 100
	}
	fmt.Fprintf(out, "🏆 Score: %d/%d (%.1f%%)\n", s.Score, len(s.Questions), percentage)
	fmt.Fprintln(out, feedback(percentage))
}

func feedback(percentage float64) string {
	switch {
	case percentage >= 80:
		return "🌟 Excellent work!"
	case percentage >= 60:
		return "👍 Good job!"
	default:
		return "📚 Keep studying!"
	}
}
