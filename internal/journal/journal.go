package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adichiru/jenkins-auto-update/internal/logger"
)

// Severity classifies a run record line.
type Severity string

// Severities accepted by the run record. Anything else is a programming
// error and must abort the run.
const (
	SeverityInfo    Severity = "INFO"
	SeverityAction  Severity = "ACTION"
	SeveritySuccess Severity = "SUCCESS"
	SeverityError   Severity = "ERROR"
)

const (
	// timestampLayout renders the date and time columns of a record line.
	timestampLayout = "20060102 150405"

	// headerMessage is written once when the record file is created.
	headerMessage = "File created"

	// filePermissions is the mode for a newly created record file.
	filePermissions = 0o644
)

// ErrInvalidSeverity is returned when a caller passes an unknown severity.
// Callers treat it as fatal: it signals a coding mistake, not a runtime
// condition.
var ErrInvalidSeverity = errors.New("invalid journal severity")

// Writer appends run record lines to a plain text file. The file is created
// on first write with a header line and only ever appended to afterwards.
// Each line is written with a single write call on an O_APPEND descriptor,
// so concurrent writers cannot interleave within a line.
type Writer struct {
	// path is the filesystem location of the record file.
	path string
	// echo mirrors every line to the console logger.
	echo bool
	// mu serializes appends from this process.
	mu sync.Mutex
	// now is overridable for tests.
	now func() time.Time
}

// New creates a Writer for the record file at path.
func New(path string, echo bool) *Writer {
	return &Writer{
		path: filepath.Clean(path),
		echo: echo,
		now:  time.Now,
	}
}

// Append writes one record line with the given severity.
func (w *Writer) Append(ctx context.Context, severity Severity, message string) error {
	switch severity {
	case SeverityInfo, SeverityAction, SeveritySuccess, SeverityError:
	default:
		return fmt.Errorf("%q: %w", string(severity), ErrInvalidSeverity)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, statErr := os.Stat(w.path)
	created := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	if created {
		if err = w.writeLine(ctx, file, SeverityInfo, headerMessage); err != nil {
			return err
		}
	}

	return w.writeLine(ctx, file, severity, message)
}

// Info appends a formatted INFO line.
func (w *Writer) Info(ctx context.Context, format string, args ...any) error {
	return w.Append(ctx, SeverityInfo, fmt.Sprintf(format, args...))
}

// Action appends a formatted ACTION line.
func (w *Writer) Action(ctx context.Context, format string, args ...any) error {
	return w.Append(ctx, SeverityAction, fmt.Sprintf(format, args...))
}

// Success appends a formatted SUCCESS line.
func (w *Writer) Success(ctx context.Context, format string, args ...any) error {
	return w.Append(ctx, SeveritySuccess, fmt.Sprintf(format, args...))
}

// Error appends a formatted ERROR line.
func (w *Writer) Error(ctx context.Context, format string, args ...any) error {
	return w.Append(ctx, SeverityError, fmt.Sprintf(format, args...))
}

// writeLine renders and appends a single line, echoing it when configured.
func (w *Writer) writeLine(ctx context.Context, file *os.File, severity Severity, message string) error {
	line := fmt.Sprintf("%s %s %s\n", w.now().Format(timestampLayout), severity, message)

	// One write call per line keeps appends atomic across processes.
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("append journal line: %w", err)
	}

	if w.echo {
		if severity == SeverityError {
			logger.Error(ctx, message)
		} else {
			logger.Info(ctx, message)
		}
	}

	return nil
}
