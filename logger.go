package pantryplanner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// RunLogger records the state-machine transitions of a planning run.
type RunLogger interface {
	LogPhase(phase PhaseLog) error
}

// NewRunLogFilePath returns a file path keyed by time and assist provider so logs of
// different providers are easy to tell apart.
func NewRunLogFilePath(provider string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(provider), ":", "_"),
	)
}

// PhaseLog represents a single transition of the planning state machine.
type PhaseLog struct {
	Phase     string         `json:"phase"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// FileRunLogger accumulates phases and writes them as one document on Flush.
type FileRunLogger struct {
	phases []PhaseLog
	writer io.Writer
}

func NewFileRunLogger(writer io.Writer) *FileRunLogger {
	return &FileRunLogger{
		phases: make([]PhaseLog, 0),
		writer: writer,
	}
}

// LogPhase buffers the phase (does not flush immediately)
func (l *FileRunLogger) LogPhase(phase PhaseLog) error {
	l.phases = append(l.phases, phase)
	return nil
}

// Flush writes all buffered phases to the writer and clears the buffer.
func (l *FileRunLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"planning_session": map[string]any{
			"timestamp": time.Now(),
			"phases":    l.phases,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal planning log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write planning log: %w", err)
	}

	l.phases = l.phases[:0]
	return nil
}

// Phases returns the buffered phases.
func (l *FileRunLogger) Phases() []PhaseLog {
	return l.phases
}

type NoOpRunLogger struct{}

func NewNoOpRunLogger() *NoOpRunLogger {
	return &NoOpRunLogger{}
}

func (nop *NoOpRunLogger) LogPhase(phase PhaseLog) error {
	return nil
}

// StdoutRunLogger writes each phase as a JSON line to stdout (for Lambda/CloudWatch)
type StdoutRunLogger struct {
	out io.Writer
}

func NewStdoutRunLogger() *StdoutRunLogger {
	return &StdoutRunLogger{out: os.Stdout}
}

func (l *StdoutRunLogger) LogPhase(phase PhaseLog) error {
	data, err := json.Marshal(phase)
	if err != nil {
		return err
	}
	fmt.Fprintln(l.out, string(data))
	return nil
}
