package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/termfx/gglang/db"
	"github.com/termfx/gglang/internal/compiler"
	"github.com/termfx/gglang/internal/config"
	"github.com/termfx/gglang/internal/scanner"
	"github.com/termfx/gglang/internal/util"
	"github.com/termfx/gglang/models"
)

// Config carries the driver options shared by the subcommands.
type Config struct {
	Output      string
	ShowDiff    bool
	DiffContext int
	JSONOutput  bool
	Verbose     bool
	NoColor     bool
	CheckOnly   bool

	// LogDSN overrides the project's build_log setting; a local
	// sqlite path or a libsql URL. Recording is off when neither is
	// set.
	LogDSN string
}

// Runner drives compilations for the command-line front end.
type Runner struct {
	cfg *Config
}

func NewRunner(cfg *Config) *Runner {
	if cfg.DiffContext == 0 {
		cfg.DiffContext = 3
	}
	return &Runner{cfg: cfg}
}

// Build compiles one source file, prints its diagnostics and, unless
// running in check-only mode, writes the emitted C next to the source
// (or to the configured output path). It returns the output path for
// successful builds.
func (r *Runner) Build(path string) (compiler.Result, string, error) {
	if scanner.IsLibraryFile(path) {
		return compiler.Result{}, "", fmt.Errorf("%s is a library file and cannot be compiled as an entry point", path)
	}

	project, err := config.Discover(filepath.Dir(path))
	if err != nil {
		return compiler.Result{}, "", err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return compiler.Result{}, "", fmt.Errorf("reading source: %w", err)
	}

	started := time.Now()
	result := compiler.Compile(string(source), compiler.Options{
		File:        path,
		GCDisabled:  !project.GCEnabled,
		MemoryLimit: project.MemoryLimit,
	})
	elapsed := time.Since(started)

	r.printDiagnostics(result, path)

	outPath := ""
	if result.Ok() && !r.cfg.CheckOnly {
		outPath = r.cfg.Output
		if outPath == "" {
			outPath = strings.TrimSuffix(path, scanner.SourceExt) + ".c"
		}
		if r.cfg.ShowDiff {
			if previous, err := os.ReadFile(outPath); err == nil {
				diff := util.DiffGenerated(string(previous), result.CSource, outPath, r.cfg.DiffContext, !r.cfg.NoColor)
				fmt.Print(diff)
			}
		}
		if err := util.WriteGeneratedFile(outPath, result.CSource); err != nil {
			return result, "", fmt.Errorf("writing output: %w", err)
		}
	}

	if db.ResolveDSN(project, r.cfg.LogDSN) != "" {
		if err := r.record(path, outPath, source, result, project, elapsed); err != nil && r.cfg.Verbose {
			fmt.Fprintf(os.Stderr, "Warning: build log unavailable: %v\n", err)
		}
	}

	return result, outPath, nil
}

// Check analyzes every source under the targets without emitting.
func (r *Runner) Check(ctx context.Context, targets []string) (errors, warnings int, err error) {
	s := scanner.New(scanner.Config{})
	files, err := s.ScanTargets(ctx, targets)
	if err != nil {
		return 0, 0, err
	}
	if len(files) == 0 {
		return 0, 0, fmt.Errorf("no %s files found", scanner.SourceExt)
	}

	for _, file := range files {
		source, err := os.ReadFile(file)
		if err != nil {
			return errors, warnings, fmt.Errorf("reading %s: %w", file, err)
		}
		result := compiler.Compile(string(source), compiler.Options{File: file})
		r.printDiagnostics(result, file)
		errors += result.Errors
		warnings += result.Warnings
	}
	return errors, warnings, nil
}

// Run builds the source, hands the C output to the system C compiler
// and executes the produced binary.
func (r *Runner) Run(path string, programArgs []string) error {
	result, outPath, err := r.Build(path)
	if err != nil {
		return err
	}
	if !result.Ok() {
		return fmt.Errorf("build failed with %d error(s)", result.Errors)
	}

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	binPath := strings.TrimSuffix(outPath, ".c")

	ccArgs := []string{outPath, "-o", binPath}
	if flags := os.Getenv("GG_CFLAGS"); flags != "" {
		ccArgs = append(ccArgs, strings.Fields(flags)...)
	}
	ccArgs = append(ccArgs, "-lggrt")

	compile := exec.Command(cc, ccArgs...)
	compile.Stdout = os.Stdout
	compile.Stderr = os.Stderr
	if err := compile.Run(); err != nil {
		return fmt.Errorf("invoking %s: %w", cc, err)
	}

	program := exec.Command(binPath, programArgs...)
	program.Stdin = os.Stdin
	program.Stdout = os.Stdout
	program.Stderr = os.Stderr
	return program.Run()
}

// Log prints the most recent build-log entries. The log location
// follows the same resolution as recording: the --log/GG_BUILD_LOG
// override, then the discovered project's build_log setting.
func (r *Runner) Log(limit int) error {
	project, err := config.Discover(".")
	if err != nil {
		return err
	}
	conn, err := db.Open(project, r.cfg.LogDSN, r.cfg.Verbose)
	if err != nil {
		return err
	}
	runs, err := db.RecentRuns(conn, limit)
	if err != nil {
		return err
	}
	PrintRuns(runs, r.cfg.NoColor)
	return nil
}

func (r *Runner) record(path, outPath string, source []byte, result compiler.Result, project *config.Project, elapsed time.Duration) error {
	conn, err := db.Open(project, r.cfg.LogDSN, false)
	if err != nil {
		return err
	}

	cfgJSON, _ := json.Marshal(map[string]any{
		"garbage_collector": project.GCEnabled,
		"memory_limit":      project.MemoryLimit,
	})

	run := &models.CompileRun{
		SourceFile:   path,
		SourceDigest: util.SourceDigest(source),
		Success:      result.Ok(),
		ErrorCount:   result.Errors,
		WarnCount:    result.Warnings,
		OutputFile:   outPath,
		OutputSize:   len(result.CSource),
		Config:       cfgJSON,
		DurationMS:   elapsed.Milliseconds(),
	}
	for _, d := range result.Diagnostics {
		run.Diagnostics = append(run.Diagnostics, models.DiagnosticRecord{
			Severity: d.Severity.String(),
			Line:     d.Line,
			Column:   d.Column,
			Message:  d.Message,
		})
	}
	return db.RecordRun(conn, run)
}

func (r *Runner) printDiagnostics(result compiler.Result, file string) {
	if r.cfg.JSONOutput {
		PrintResultJSON(result, file)
		return
	}
	PrintDiagnostics(result.Diagnostics, r.cfg.NoColor)
	PrintSummary(result, file, r.cfg.NoColor)
}
