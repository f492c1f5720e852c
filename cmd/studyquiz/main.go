package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"examprep"
)

const defaultInterviewArea = "issues relevant to Assam and India"

func main() {
	var (
		kindName   = flag.String("kind", "questions", "Content to generate: questions, flashcards or interview")
		topic      = flag.String("topic", "", "Topic (default: first quiz topic, or general issues for interview)")
		count      = flag.Int("count", 0, "Number of items to generate (default: QUIZ_QUESTION_COUNT)")
		outputFile = flag.String("output", "", "Output file for generated JSON (default: stdout)")
		apiKey     = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		playMode   = flag.Bool("play", false, "Play a timed quiz interactively")
		save       = flag.Bool("save", false, "Save generated cards, interview questions and quiz results to DB_PATH")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	examprep.SetVerbose(*verbose)

	cfg, err := examprep.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if cfg.APIKey == "" {
		log.Println("No OpenAI API key (use -api-key or OPENAI_API_KEY), generated content falls back to defaults")
	}
	if *count > 0 {
		cfg.QuestionCount = *count
	}

	kind, err := examprep.ParseContentKind(*kindName)
	if err != nil {
		log.Fatal(err)
	}
	if *topic == "" {
		if kind == examprep.KindInterviewList {
			*topic = defaultInterviewArea
		} else {
			*topic = examprep.DefaultTopics[0]
		}
	}

	var store *examprep.Store
	if *save {
		store, err = examprep.OpenStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
		if err := store.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
	}

	generator := examprep.NewGenerator(cfg.APIKey, cfg.GeneratorOptions()...)
	ctx := context.Background()

	if *playMode {
		opts := cfg.EngineOptions()
		if store != nil {
			opts = append(opts, examprep.WithResultRecorder(store))
		}
		if err := runPlay(ctx, generator, *topic, opts, os.Stdin, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	examprep.VerboseLog("Generating %d %s for topic: %s", cfg.QuestionCount, kind, *topic)
	content := generator.Generate(ctx, kind, *topic, cfg.QuestionCount)

	if store != nil {
		if err := saveContent(ctx, store, content); err != nil {
			log.Fatalf("Failed to save content: %v", err)
		}
	}

	output, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal content: %v", err)
	}

	if *outputFile != "" {
		err = os.WriteFile(*outputFile, output, 0644)
		if err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("%d %s saved to: %s", content.Len(), kind, *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

func saveContent(ctx context.Context, store *examprep.Store, content examprep.Content) error {
	switch content.Kind {
	case examprep.KindFlashcards:
		return store.AddFlashcards(ctx, content.Topic, content.Flashcards)
	case examprep.KindInterviewList:
		return store.AddInterviewQuestions(ctx, content.Topic, content.Interview)
	}
	return nil
}
