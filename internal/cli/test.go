package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden traces instead of comparing
	Filter string // glob over scenario file names, extension stripped
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult summarizes a harness run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run the conformance harness",
		Long: `Run conformance scenarios through the engine.

Every *.yaml file under <scenarios-dir> is one scenario and runs against a
fresh in-memory ledger. A scenario passes when its expectations and
assertions hold and, if <dir>/golden/<file>.golden exists next to it, its
canonical trace matches byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  accumulog test ./scenarios
  accumulog test ./scenarios --filter "counter_*"
  accumulog test ./scenarios --update
  accumulog test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	if len(files) == 0 && text {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenarioFile(file, opts.Update)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
		if text {
			writeScenarioLine(w, sr, opts.Update)
		}
	}

	if text {
		fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	} else if err := writeTestJSON(opts.formatter(cmd), result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles returns the scenario files under dir in path order.
// Golden directories are skipped.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && d.Name() == "golden" && path != dir:
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// runScenarioFile loads, runs and golden-checks one scenario. With update
// set the golden file is rewritten from the current trace.
func runScenarioFile(file string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	snapshot := harness.NewSnapshot(scenario, result)
	trace, err := snapshot.MarshalCanonical()
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}

	golden := goldenFilePath(file)
	if update {
		if err := writeGoldenFile(golden, trace); err != nil {
			return fail("failed to update golden file: %v", err)
		}
	} else {
		want, err := os.ReadFile(golden)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// assertions only
		case err != nil:
			return fail("failed to read golden file: %v", err)
		case !bytes.Equal(want, trace):
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Errors = append(sr.Errors, result.Errors...)
	sr.Pass = len(sr.Errors) == 0
	return sr
}

func writeScenarioLine(w io.Writer, sr ScenarioResult, update bool) {
	switch {
	case !sr.Pass:
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	case update:
		fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
	default:
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
	}
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// writeTestJSON emits the result in one envelope. Failures carry both the
// per-scenario data and an E_TEST_FAILED error.
func writeTestJSON(out *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	return out.encode(resp)
}
