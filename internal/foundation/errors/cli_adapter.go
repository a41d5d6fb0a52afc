package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch classified.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryNotFound:
		return 3
	case CategoryContent:
		return 4 // Content must be fixed by an author
	case CategoryConfig:
		return 7
	case CategoryNetwork, CategoryStorage:
		return 8 // External system error
	case CategoryRender, CategoryFileSystem:
		return 11 // Build error
	case CategoryRuntime:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for display on stderr.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return classified.Error()
	}
	msg := fmt.Sprintf("Error: %s", classified.Message())
	ctx := classified.Context()
	for _, k := range slices.Sorted(maps.Keys(ctx)) {
		msg += fmt.Sprintf("\n  %s: %v", k, ctx[k])
	}
	if cause := classified.Cause(); cause != nil {
		msg += fmt.Sprintf("\n  cause: %v", cause)
	}
	return msg
}

// HandleError logs and prints an error, then exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	if classified, ok := AsClassified(err); ok {
		attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
		if classified.CanRetry() {
			attrs = append(attrs, slog.Bool("retryable", true))
		}
		if a.verbose || classified.IsFatal() {
			a.logger.LogAttrs(context.Background(), slogLevel(classified.Severity()), classified.Message(), attrs...)
		}
	} else {
		a.logger.Error("Unclassified error", "error", err)
	}

	fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}
