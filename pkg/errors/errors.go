package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// Stage names the part of a host run where a failure happened.
type Stage string

const (
	StageConfig Stage = "config"
	StageLoad   Stage = "load"
	StageInit   Stage = "init"
	StageStream Stage = "stream"
	StageWrite  Stage = "write"
)

type staged interface {
	Stage() Stage
}

// StageOf reports the stage carried by err, or "" when err has none.
func StageOf(err error) Stage {
	var s staged
	if stdErrors.As(err, &s) {
		return s.Stage()
	}
	return ""
}

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ParseError) Stage() Stage { return StageConfig }

// ValidationError captures session configuration issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ValidationError) Stage() Stage { return StageConfig }

// LoadError reports a module that could not be opened for this platform.
type LoadError struct {
	Path string
	Err  error
}

// NewLoadError constructs a LoadError.
func NewLoadError(path string, err error) error {
	return &LoadError{Path: path, Err: err}
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("load error: %s", e.Path)
	}
	return fmt.Sprintf("load error: %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LoadError) Stage() Stage { return StageLoad }

// ContractViolation reports a module that lacks mandatory capabilities.
type ContractViolation struct {
	Path    string
	Missing []string
}

// NewContractViolation constructs a ContractViolation for the missing capability names.
func NewContractViolation(path string, missing []string) error {
	return &ContractViolation{Path: path, Missing: append([]string(nil), missing...)}
}

func (e *ContractViolation) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf(
		"contract violation: %s is missing required capabilities: %s\nHint: export circuit_init, circuit_process and circuit_cleanup",
		e.Path,
		strings.Join(e.Missing, ", "),
	)
}

func (e *ContractViolation) Stage() Stage { return StageLoad }

// InitError reports a failed context initialization.
type InitError struct {
	SampleRate int
	BufferSize int
	Oversample int
	Err        error
}

// NewInitError constructs an InitError for the requested configuration.
func NewInitError(sampleRate, bufferSize, oversample int, err error) error {
	return &InitError{SampleRate: sampleRate, BufferSize: bufferSize, Oversample: oversample, Err: err}
}

func (e *InitError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("init error: sample_rate=%d buffer_size=%d oversample=%d", e.SampleRate, e.BufferSize, e.Oversample)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error.
func (e *InitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *InitError) Stage() Stage { return StageInit }

// ConfigMismatch reports a stream configuration that disagrees with the
// requested processing. It is raised before streaming starts.
type ConfigMismatch struct {
	Field    string
	Expected any
	Actual   any
}

// NewConfigMismatch constructs a ConfigMismatch.
func NewConfigMismatch(field string, expected, actual any) error {
	return &ConfigMismatch{Field: field, Expected: expected, Actual: actual}
}

func (e *ConfigMismatch) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("config mismatch: %s: expected %v, got %v", e.Field, e.Expected, e.Actual)
}

func (e *ConfigMismatch) Stage() Stage { return StageStream }

// IOError reports an unreadable source or unwritable sink.
type IOError struct {
	Path string
	Op   string
	Err  error
}

// NewIOError constructs an IOError. Op is one of open, read, create, write or close.
func NewIOError(path, op string, err error) error {
	return &IOError{Path: path, Op: op, Err: err}
}

func (e *IOError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Stage is write for sink-side operations and stream for everything else.
func (e *IOError) Stage() Stage {
	switch e.Op {
	case "create", "write", "close":
		return StageWrite
	default:
		return StageStream
	}
}

// ProcessError reports a failed process call during streaming.
type ProcessError struct {
	Buffer int
	Err    error
}

// NewProcessError constructs a ProcessError for the zero-based buffer index.
func NewProcessError(buffer int, err error) error {
	return &ProcessError{Buffer: buffer, Err: err}
}

func (e *ProcessError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("process buffer %d: %v", e.Buffer, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ProcessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProcessError) Stage() Stage { return StageStream }
