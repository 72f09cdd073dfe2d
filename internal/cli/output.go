package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/termfx/gglang/internal/compiler"
	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/models"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
)

// PrintDiagnostics writes the diagnostics to stderr, one per line,
// with a severity-colored prefix and the position as a suffix.
func PrintDiagnostics(diags []diag.Diagnostic, noColor bool) {
	for _, d := range diags {
		prefix := d.Severity.String() + ":"
		if !noColor {
			switch d.Severity {
			case diag.Error:
				prefix = red(prefix)
			case diag.Warning:
				prefix = yellow(prefix)
			default:
				prefix = cyan(prefix)
			}
		}
		fmt.Fprintf(os.Stderr, "%s %s (%d:%d)\n", prefix, d.Message, d.Line, d.Column)
	}
}

// PrintSummary writes the per-file result line.
func PrintSummary(result compiler.Result, file string, noColor bool) {
	if result.Ok() {
		mark := "✓"
		if !noColor {
			mark = green(mark)
		}
		if result.Warnings > 0 {
			fmt.Fprintf(os.Stderr, "%s %s — %d warning(s)\n", mark, file, result.Warnings)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", mark, file)
		}
		return
	}
	mark := "✗"
	if !noColor {
		mark = red(mark)
	}
	fmt.Fprintf(os.Stderr, "%s %s — %d error(s), %d warning(s)\n", mark, file, result.Errors, result.Warnings)
}

// PrintResultJSON writes the machine-readable result to stdout.
func PrintResultJSON(result compiler.Result, file string) {
	type jsonDiag struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	}
	payload := struct {
		File        string     `json:"file"`
		Success     bool       `json:"success"`
		Errors      int        `json:"errors"`
		Warnings    int        `json:"warnings"`
		Diagnostics []jsonDiag `json:"diagnostics"`
	}{
		File:     file,
		Success:  result.Ok(),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
	for _, d := range result.Diagnostics {
		payload.Diagnostics = append(payload.Diagnostics, jsonDiag{
			Severity: d.Severity.String(),
			Message:  d.Message,
			Line:     d.Line,
			Column:   d.Column,
		})
	}
	out, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting result to JSON: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

// PrintRuns renders build-log entries, newest first.
func PrintRuns(runs []models.CompileRun, noColor bool) {
	for _, run := range runs {
		mark := "✓"
		if !run.Success {
			mark = "✗"
		}
		if !noColor {
			if run.Success {
				mark = green(mark)
			} else {
				mark = red(mark)
			}
		}
		fmt.Printf("%s %s — %d error(s), %d warning(s), %d bytes, %dms (%s)\n",
			mark, run.SourceFile, run.ErrorCount, run.WarnCount,
			run.OutputSize, run.DurationMS, run.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
