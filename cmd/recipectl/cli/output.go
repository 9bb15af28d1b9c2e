package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lyzr/recipes/cmd/recipes/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Check found problems
	ExitCommandError = 2 // Bad flags, unreachable store, invalid rules
)

// IntegrityReport is the report check and repair print
type IntegrityReport = models.IntegrityReport

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command prints.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Report prints an integrity report under a heading
func (f *OutputFormatter) Report(heading string, report *IntegrityReport) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: report})
	}

	if report.Clean() {
		_, err := fmt.Fprintf(f.Writer, "%s: clean\n", heading)
		return err
	}

	fmt.Fprintf(f.Writer, "%s:\n", heading)
	fmt.Fprintf(f.Writer, "  dangling links: %d\n", len(report.DanglingLinks))
	for _, link := range report.DanglingLinks {
		fmt.Fprintf(f.Writer, "    recipe=%s ingredient=%s\n", link.RecipeID, link.IngredientID)
	}
	fmt.Fprintf(f.Writer, "  orphan ingredients: %d\n", len(report.OrphanIngredients))
	for _, id := range report.OrphanIngredients {
		fmt.Fprintf(f.Writer, "    %s\n", id)
	}
	return nil
}

// Rules prints compiled rule expressions
func (f *OutputFormatter) Rules(exprs []string) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: map[string][]string{"rules": exprs}})
	}

	for _, expr := range exprs {
		if _, err := fmt.Fprintf(f.Writer, "ok  %s\n", expr); err != nil {
			return err
		}
	}
	return nil
}

// VerboseLog writes to ErrWriter when verbose is set
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

func (f *OutputFormatter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
