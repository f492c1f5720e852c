package examprep

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenerationLog records one generation call (prompt, raw response, outcome) to
// its own file under the log directory.
type GenerationLog struct {
	file *os.File
	mu   sync.Mutex
	id   string
	path string
}

// NewGenerationLog creates the log file for a single generation request
func NewGenerationLog(dir, id string, kind ContentKind, topic string, count int) (*GenerationLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.log", kind, id))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	gl := &GenerationLog{
		file: file,
		id:   id,
		path: filename,
	}

	gl.Logf("=== Generation Log ===\n")
	gl.Logf("Request ID: %s\n", id)
	gl.Logf("Kind: %s\n", kind)
	gl.Logf("Topic: %s\n", topic)
	gl.Logf("Count: %d\n", count)
	gl.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	gl.Logf("======================\n\n")

	return gl, nil
}

// Path returns the location of the log file
func (gl *GenerationLog) Path() string {
	return gl.path
}

// Logf writes a formatted log entry with timestamp
func (gl *GenerationLog) Logf(format string, args ...interface{}) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	gl.logf(format, args...)
}

func (gl *GenerationLog) logf(format string, args ...interface{}) {
	if gl.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(gl.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	gl.file.Sync()
}

// LogRequest logs the prompt sent to the service
func (gl *GenerationLog) LogRequest(tool, prompt string) {
	gl.Logf("=== REQUEST (%s) ===\n", tool)
	gl.Logf("Prompt:\n%s\n", prompt)
	gl.Logf("====================\n\n")
}

// LogResponse logs the raw tool call arguments returned by the service
func (gl *GenerationLog) LogResponse(tool, response string) {
	gl.Logf("=== RESPONSE (%s) ===\n", tool)
	gl.Logf("Response:\n%s\n", response)
	gl.Logf("=====================\n\n")
}

// LogFailure logs a failure diagnostic
func (gl *GenerationLog) LogFailure(gerr *GenerationError) {
	gl.Logf("FAILURE class=%s kind=%s topic=%q cause=%v\n", gerr.Class, gerr.Kind, gerr.Topic, gerr.Err)
}

// LogAccepted logs the number of items that passed validation
func (gl *GenerationLog) LogAccepted(n int) {
	gl.Logf("ACCEPTED %d items\n", n)
}

// Close closes the log file
func (gl *GenerationLog) Close() error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	if gl.file == nil {
		return nil
	}
	gl.logf("=== Generation Complete ===\n")
	gl.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	err := gl.file.Close()
	gl.file = nil
	return err
}
