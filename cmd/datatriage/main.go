package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/render"
	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/server"
	"github.com/dshills/datatriage/internal/session"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// checkFlags holds the parsed flags for the check command.
type checkFlags struct {
	format  string
	out     string
	target  string
	deep    bool
	failOn  string
	verbose bool
}

func main() {
	root := &cobra.Command{
		Use:   "datatriage",
		Short: "Triage a tabular dataset before modeling",
		Long:  "Datatriage computes statistical signals over a dataset, evaluates assumption checks, and synthesizes a modeling permission verdict.",
	}
	root.Version = version

	var flags checkFlags
	checkCmd := &cobra.Command{
		Use:   "check <data-file>",
		Short: "Diagnose a dataset and produce a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], flags)
		},
	}

	f := checkCmd.Flags()
	f.StringVar(&flags.format, "format", "json", "Output format: json or md")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.target, "target", "", "Target column for deep analysis (default: last column)")
	f.BoolVar(&flags.deep, "deep", false, "Run the extended per-column and cross-column checks")
	f.StringVar(&flags.failOn, "fail-on", "", "Exit 2 if verdict >= this level (CONSTRAINED or BLOCKED)")
	f.BoolVar(&flags.verbose, "verbose", false, "Print processing steps to stderr")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported loader file extensions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Readable:", strings.Join(dataset.SupportedExtensions(), " "))
			fmt.Println("Recognized:", strings.Join(dataset.KnownExtensions(), " "))
		},
	}

	root.AddCommand(checkCmd, serveCmd, formatsCmd)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func runCheck(dataPath string, flags checkFlags) error {
	if flags.failOn != "" {
		if schema.VerdictOrdinal(schema.Verdict(flags.failOn)) < 0 {
			return codeError(3, "invalid --fail-on value %q: use CONSTRAINED or BLOCKED", flags.failOn)
		}
	}

	sess, err := session.New()
	if err != nil {
		return codeError(4, "initializing checks: %s", err)
	}

	logVerbose(flags.verbose, "Loading dataset: %s", dataPath)
	if err := sess.Load(dataPath); err != nil {
		return codeError(3, "loading dataset: %s", err)
	}

	if flags.target != "" {
		logVerbose(flags.verbose, "Setting target column: %s", flags.target)
		if err := sess.SetTarget(flags.target); err != nil {
			return codeError(3, "setting target: %s", err)
		}
	}

	logVerbose(flags.verbose, "Running diagnostics")
	report, err := sess.RunDiagnostics()
	if err != nil {
		return codeError(4, "running diagnostics: %s", err)
	}

	if flags.deep {
		logVerbose(flags.verbose, "Running deep analysis")
		report, err = sess.RunDeepAnalysis()
		if err != nil {
			return codeError(4, "running deep analysis: %s", err)
		}
	}
	report.Version = version

	logVerbose(flags.verbose, "Rendering output (format: %s)", flags.format)
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(&report)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}

	if flags.out != "" {
		if err := os.WriteFile(flags.out, outputBytes, 0o644); err != nil {
			return codeError(3, "writing output file: %s", err)
		}
	} else {
		if _, err := os.Stdout.Write(outputBytes); err != nil {
			return codeError(3, "writing output: %s", err)
		}
		// Ensure output ends with a newline for terminal friendliness.
		if len(outputBytes) > 0 && outputBytes[len(outputBytes)-1] != '\n' {
			fmt.Fprintln(os.Stdout)
		}
	}

	if flags.failOn != "" {
		verdict := sess.Verdict()
		threshold := schema.Verdict(flags.failOn)
		if schema.VerdictOrdinal(verdict) >= schema.VerdictOrdinal(threshold) {
			return codeError(2, "verdict %s meets or exceeds --fail-on threshold %s", verdict, threshold)
		}
	}

	return nil
}

func runServe() error {
	cfg, err := server.ConfigFromEnv()
	if err != nil {
		return codeError(3, "loading config: %s", err)
	}
	sess, err := session.New()
	if err != nil {
		return codeError(4, "initializing checks: %s", err)
	}
	if err := server.New(cfg, sess).ListenAndServe(); err != nil {
		return codeError(5, "server: %s", err)
	}
	return nil
}

// logVerbose writes a progress line to stderr when verbose mode is enabled.
func logVerbose(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
