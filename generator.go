package examprep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured
const DefaultModel = openai.GPT4o

// Generator turns a topic into schema-checked study content using an
// OpenAI-compatible chat completion service. Its content methods never return
// errors: failures are logged, reported to the failure hook and replaced with
// fallback content.
type Generator struct {
	client    *openai.Client
	hasKey    bool
	model     string
	timeout   time.Duration
	logDir    string
	audience  string
	onFailure func(*GenerationError)
}

// GeneratorOption configures a Generator
type GeneratorOption func(*generatorSettings)

type generatorSettings struct {
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
	logDir     string
	audience   string
	onFailure  func(*GenerationError)
}

// WithBaseURL points the generator at another OpenAI-compatible endpoint
func WithBaseURL(url string) GeneratorOption {
	return func(s *generatorSettings) { s.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for service calls
func WithHTTPClient(c *http.Client) GeneratorOption {
	return func(s *generatorSettings) { s.httpClient = c }
}

// WithModel sets the chat model
func WithModel(model string) GeneratorOption {
	return func(s *generatorSettings) { s.model = model }
}

// WithTimeout bounds every generation call
func WithTimeout(d time.Duration) GeneratorOption {
	return func(s *generatorSettings) { s.timeout = d }
}

// WithLogDir enables per-request generation log files in dir
func WithLogDir(dir string) GeneratorOption {
	return func(s *generatorSettings) { s.logDir = dir }
}

// WithAudience sets who the content is written for, e.g. the exam name
func WithAudience(audience string) GeneratorOption {
	return func(s *generatorSettings) { s.audience = audience }
}

// WithFailureHook registers fn to receive every absorbed generation failure
func WithFailureHook(fn func(*GenerationError)) GeneratorOption {
	return func(s *generatorSettings) { s.onFailure = fn }
}

// NewGenerator creates a generator. An empty apiKey is allowed; every call then
// fails with ErrMissingCredential and serves fallback content.
func NewGenerator(apiKey string, opts ...GeneratorOption) *Generator {
	settings := generatorSettings{
		model:    DefaultModel,
		audience: "APSC (Assam Public Service Commission) civil services exam",
	}
	for _, opt := range opts {
		opt(&settings)
	}

	config := openai.DefaultConfig(apiKey)
	if settings.baseURL != "" {
		config.BaseURL = settings.baseURL
	}
	if settings.httpClient != nil {
		config.HTTPClient = settings.httpClient
	}

	return &Generator{
		client:    openai.NewClientWithConfig(config),
		hasKey:    strings.TrimSpace(apiKey) != "",
		model:     settings.model,
		timeout:   settings.timeout,
		logDir:    settings.logDir,
		audience:  settings.audience,
		onFailure: settings.onFailure,
	}
}

// GenerateQuestions returns up to count validated multiple choice questions for
// topic, or the single fallback question if generation fails.
func (g *Generator) GenerateQuestions(ctx context.Context, topic string, count int) []GeneratedQuestion {
	return g.Generate(ctx, KindQuestions, topic, count).Questions
}

// GenerateFlashcards returns up to count flashcards for topic. An empty result
// means nothing was produced.
func (g *Generator) GenerateFlashcards(ctx context.Context, topic string, count int) []Flashcard {
	return g.Generate(ctx, KindFlashcards, topic, count).Flashcards
}

// GenerateInterviewQuestions returns up to count interview questions for topic.
// An empty result means nothing was produced.
func (g *Generator) GenerateInterviewQuestions(ctx context.Context, topic string, count int) []string {
	return g.Generate(ctx, KindInterviewList, topic, count).Interview
}

// Generate issues a single structured generation request for kind and returns
// the validated content, or the kind's fallback content on any failure.
func (g *Generator) Generate(ctx context.Context, kind ContentKind, topic string, count int) Content {
	requestID := uuid.NewString()

	var glog *GenerationLog
	if g.logDir != "" {
		var err error
		glog, err = NewGenerationLog(g.logDir, requestID, kind, topic, count)
		if err != nil {
			logGeneration("Failed to create generation log for %s: %v", requestID, err)
		} else {
			defer glog.Close()
		}
	}

	content, gerr := g.generate(ctx, kind, topic, count, glog)
	if gerr != nil {
		g.reportFailure(gerr, glog)
		return fallbackContent(kind, topic)
	}

	if glog != nil {
		glog.LogAccepted(content.Len())
	}
	VerboseLog("Generated %d %s for topic %q", content.Len(), kind, topic)
	return content
}

func (g *Generator) reportFailure(gerr *GenerationError, glog *GenerationLog) {
	logGeneration("Error generating %s for topic %q (%s): %v", gerr.Kind, gerr.Topic, gerr.Class, gerr.Err)
	if glog != nil {
		glog.LogFailure(gerr)
	}
	if g.onFailure != nil {
		g.onFailure(gerr)
	}
}

func (g *Generator) generate(ctx context.Context, kind ContentKind, topic string, count int, glog *GenerationLog) (Content, *GenerationError) {
	if strings.TrimSpace(topic) == "" {
		return Content{}, failure(kind, topic, ClassConfiguration, fmt.Errorf("%w: topic is empty", ErrInvalidRequest))
	}
	if count < 1 {
		return Content{}, failure(kind, topic, ClassConfiguration, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, count))
	}
	if !g.hasKey {
		return Content{}, failure(kind, topic, ClassConfiguration, ErrMissingCredential)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	tool := toolName(kind)
	prompt := g.buildPrompt(kind, topic, count)
	if glog != nil {
		glog.LogRequest(tool, prompt)
	}

	VerboseLog("Requesting %d %s for topic %q", count, kind, topic)

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert exam preparation assistant. Respond only by calling the provided tool with content that strictly follows its schema.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        tool,
						Description: toolDescription(kind),
						Parameters:  toolParameters(kind),
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: tool,
				},
			},
		},
	)
	if err != nil {
		return Content{}, failure(kind, topic, ClassTransport, fmt.Errorf("failed to call generation service: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Content{}, failure(kind, topic, ClassEmpty, fmt.Errorf("%w: no choices in response", ErrEmptyResult))
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return Content{}, failure(kind, topic, ClassEmpty, fmt.Errorf("%w: no tool calls in response", ErrEmptyResult))
	}

	toolCall := choice.Message.ToolCalls[0]
	if glog != nil {
		glog.LogResponse(tool, toolCall.Function.Arguments)
	}
	if toolCall.Function.Name != tool {
		return Content{}, failure(kind, topic, ClassSchema, fmt.Errorf("%w: unexpected tool call: %s", ErrSchemaViolation, toolCall.Function.Name))
	}

	raw, err := unwrapItems(toolCall.Function.Arguments)
	if err != nil {
		return Content{}, failure(kind, topic, ClassSchema, err)
	}

	content := Content{Kind: kind, Topic: topic}
	switch kind {
	case KindQuestions:
		content.Questions, err = ParseQuestions(raw)
		if len(content.Questions) > count {
			content.Questions = content.Questions[:count]
		}
	case KindFlashcards:
		content.Flashcards, err = ParseFlashcards(raw)
		if len(content.Flashcards) > count {
			content.Flashcards = content.Flashcards[:count]
		}
	case KindInterviewList:
		content.Interview, err = ParseInterviewQuestions(raw)
		if len(content.Interview) > count {
			content.Interview = content.Interview[:count]
		}
	default:
		err = fmt.Errorf("%w: unknown content kind %d", ErrInvalidRequest, int(kind))
	}
	if err != nil {
		class := ClassSchema
		if errors.Is(err, ErrInvalidRequest) {
			class = ClassConfiguration
		}
		return Content{}, failure(kind, topic, class, err)
	}

	if content.Len() == 0 {
		return Content{}, failure(kind, topic, ClassEmpty, ErrEmptyResult)
	}
	return content, nil
}

func (g *Generator) buildPrompt(kind ContentKind, topic string, count int) string {
	var sb strings.Builder

	switch kind {
	case KindFlashcards:
		sb.WriteString(fmt.Sprintf("Generate %d flashcards for the topic %q.\n\n", count, topic))
		sb.WriteString(fmt.Sprintf("These are for %s preparation.\n\n", g.audience))
		sb.WriteString("Requirements:\n")
		sb.WriteString("- Each flashcard must have a 'question' and a concise 'answer'\n")
		sb.WriteString("- Prefer facts that are commonly asked in the exam\n")
	case KindInterviewList:
		sb.WriteString(fmt.Sprintf("Generate %d insightful interview questions for a %s candidate on the topic of %q.\n\n", count, g.audience, topic))
		sb.WriteString("Requirements:\n")
		sb.WriteString("- Each question must be a single non-empty string\n")
		sb.WriteString("- Mix opinion, situational and knowledge based questions\n")
	default:
		sb.WriteString(fmt.Sprintf("Generate %d multiple-choice questions (MCQs) for the topic %q.\n\n", count, topic))
		sb.WriteString(fmt.Sprintf("These MCQs are for the %s, so the difficulty level should be moderate to high.\n\n", g.audience))
		sb.WriteString("Each MCQ must have:\n")
		sb.WriteString("1. A clear question.\n")
		sb.WriteString("2. An array of exactly 4 distinct string options.\n")
		sb.WriteString("3. The correct answer, which must be copied exactly from one of the options.\n")
		sb.WriteString("4. A brief explanation for the correct answer.\n")
	}

	sb.WriteString(fmt.Sprintf("\nUse the %s tool to return your output, with the results in the %q array.\n", toolName(kind), itemsProperty))
	return sb.String()
}
