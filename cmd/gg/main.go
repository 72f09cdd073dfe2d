package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/termfx/gglang/internal/cli"
)

// Version is stamped by the release build.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gg",
		Short:         "gg compiles gg sources to C",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd(), newCheckCmd(), newRunCmd(), newLogCmd(), newVersionCmd())
	return root
}

func addCommonFlags(flags *pflag.FlagSet, cfg *cli.Config) {
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output.")
	flags.BoolVarP(&cfg.JSONOutput, "json", "j", false, "Output results in JSON format.")
	flags.BoolVar(&cfg.NoColor, "no-color", false, "Disable ANSI colors.")
	flags.StringVar(&cfg.LogDSN, "log", os.Getenv("GG_BUILD_LOG"), "Build log DSN (sqlite path or libsql URL); overrides the project build_log setting.")
}

func newBuildCmd() *cobra.Command {
	cfg := &cli.Config{}
	cmd := &cobra.Command{
		Use:   "build <file.gg>",
		Short: "Compile a source file to C",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := cli.NewRunner(cfg)
			result, outPath, err := runner.Build(args[0])
			if err != nil {
				return err
			}
			if !result.Ok() {
				return fmt.Errorf("build failed with %d error(s)", result.Errors)
			}
			if cfg.Verbose {
				fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	addCommonFlags(flags, cfg)
	flags.StringVarP(&cfg.Output, "output", "o", "", "Output path for the generated C file.")
	flags.BoolVarP(&cfg.ShowDiff, "diff", "D", false, "Show a unified diff against the previous output.")
	flags.IntVarP(&cfg.DiffContext, "diff-context", "C", 3, "Lines of context for the diff.")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cfg := &cli.Config{CheckOnly: true}
	cmd := &cobra.Command{
		Use:   "check [files or directories...]",
		Short: "Analyze sources without emitting C",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := args
			if len(targets) == 0 {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting current directory: %w", err)
				}
				targets = []string{cwd}
			}
			runner := cli.NewRunner(cfg)
			errors, warnings, err := runner.Check(context.Background(), targets)
			if err != nil {
				return err
			}
			if errors > 0 {
				return fmt.Errorf("%d error(s), %d warning(s)", errors, warnings)
			}
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), cfg)
	return cmd
}

func newRunCmd() *cobra.Command {
	cfg := &cli.Config{}
	cmd := &cobra.Command{
		Use:   "run <file.gg> [program args...]",
		Short: "Compile and execute a program",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := cli.NewRunner(cfg)
			return runner.Run(args[0], args[1:])
		},
	}
	addCommonFlags(cmd.Flags(), cfg)
	return cmd
}

func newLogCmd() *cobra.Command {
	cfg := &cli.Config{}
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent compilations from the build log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := cli.NewRunner(cfg)
			return runner.Log(limit)
		},
	}
	flags := cmd.Flags()
	addCommonFlags(flags, cfg)
	flags.IntVarP(&limit, "limit", "n", 20, "Number of entries to show.")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gg %s\n", Version)
		},
	}
}
