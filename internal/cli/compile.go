package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // listing output file path
	Database string // optional run database
	Workers  int    // units lowered in parallel
}

// UnitOutput is the outcome of one unit.
type UnitOutput struct {
	Unit    string          `json:"unit"`
	Path    string          `json:"path"`
	Status  string          `json:"status"` // "ok" or "failed"
	Hash    string          `json:"hash,omitempty"`
	RunID   string          `json:"run_id,omitempty"`
	Stats   *compiler.Stats `json:"stats,omitempty"`
	Listing string          `json:"listing,omitempty"`
	Error   *LoweringError  `json:"error,omitempty"`
}

// LoweringError is the JSON form of a diag.Error.
type LoweringError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Decl    string            `json:"decl,omitempty"`
	Index   int               `json:"index"`
	File    string            `json:"file,omitempty"`
	Line    int               `json:"line,omitempty"`
	Related []string          `json:"related,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Causes  []string          `json:"causes,omitempty"`
}

// CompilationResult holds every unit's outcome.
type CompilationResult struct {
	Units  []UnitOutput `json:"units"`
	Failed int          `json:"failed"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <unit>...",
		Short: "Lower units to flat declarations",
		Long: `Lower CUE units to flat, C-compatible declarations.

Each argument is a .cue file or a directory holding one CUE package.
Units are independent and are lowered in parallel. The listing shows
forward declarations, definitions and macros under their flat names.

Exit codes:
  0 - All units lowered
  2 - A unit failed to load or lower

Examples:
  flatc compile shapes.cue
  flatc compile ./units/geometry ./units/io.cue --db ./flatc.db
  flatc compile shapes.cue --output shapes.flat --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write listings to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "units lowered in parallel (0 = GOMAXPROCS)")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadUnits(paths, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, "Compilation", loadErrors)
	}
	formatter.VerboseLog("Loaded %d unit(s) from %d CUE file(s)", len(loadResult.Units), loadResult.FileCount)

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputCompileError(formatter, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer st.Close()
	}

	results := compiler.CompileAll(ctx, loadResult.Units, opts.Workers, compiler.WithLogger(formatter.Logger()))

	out := CompilationResult{Units: make([]UnitOutput, len(results))}
	var listings strings.Builder
	for i, r := range results {
		u := loadResult.Units[i]
		uo := unitOutput(r, loadResult.Paths[i])
		if uo.Status == store.StatusOK {
			listings.WriteString(uo.Listing)
		} else {
			out.Failed++
		}
		if st != nil {
			runID, err := recordRun(ctx, st, u, r)
			if err != nil {
				return outputCompileError(formatter, ErrCodeDatabase, fmt.Sprintf("recording run for %s: %v", u.Name, err), nil)
			}
			uo.RunID = runID
			formatter.VerboseLog("Recorded run %s for %s", runID, u.Name)
		}
		out.Units[i] = uo
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(listings.String()), 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileResult(formatter, out, opts.Output)
}

func unitOutput(r compiler.UnitResult, path string) UnitOutput {
	if r.Err != nil {
		return UnitOutput{Unit: r.Unit, Path: path, Status: store.StatusFailed, Error: loweringError(r.Err)}
	}
	stats := r.Result.Stats
	return UnitOutput{
		Unit:    r.Unit,
		Path:    path,
		Status:  store.StatusOK,
		Hash:    r.Result.Hash,
		Stats:   &stats,
		Listing: compiler.Dump(r.Result),
	}
}

// loweringError flattens err into its JSON form. Errors that are not
// diag errors, such as cancellation, get the generic code.
func loweringError(err error) *LoweringError {
	var de *diag.Error
	if !errors.As(err, &de) {
		return &LoweringError{Kind: ErrCodeGeneric, Message: err.Error()}
	}
	le := &LoweringError{
		Kind:    string(de.Kind),
		Message: de.Message,
		Decl:    de.Site.Decl,
		Index:   de.Site.Index,
		File:    de.Site.Pos.File,
		Line:    de.Site.Pos.Line,
		Details: de.Details,
	}
	for _, s := range de.Related {
		le.Related = append(le.Related, s.String())
	}
	for _, c := range de.Causes {
		le.Causes = append(le.Causes, c.Error())
	}
	return le
}

// recordRun stores the outcome of one unit and returns the run ID.
func recordRun(ctx context.Context, st *store.Store, u *ir.Unit, r compiler.UnitResult) (string, error) {
	hash, err := ir.UnitHash(u)
	if err != nil {
		return "", err
	}
	if r.Err != nil {
		run, err := st.RecordRun(ctx, store.Run{
			Unit:     u.Name,
			UnitHash: hash,
			Status:   store.StatusFailed,
			Error:    r.Err.Error(),
		}, nil)
		return run.ID, err
	}

	symbols, err := store.SymbolsOf(r.Result.Names)
	if err != nil {
		return "", err
	}
	stats, err := json.Marshal(r.Result.Stats)
	if err != nil {
		return "", err
	}
	run, err := st.RecordRun(ctx, store.Run{
		Unit:     u.Name,
		UnitHash: hash,
		Stats:    string(stats),
	}, symbols)
	return run.ID, err
}

// outputCompileResult outputs per-unit results.
func outputCompileResult(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			first := firstFailure(result)
			resp.Error = &CLIError{Code: first.Error.Kind, Message: first.Error.Message}
		}
		if err := encodeResponse(formatter.Writer, resp); err != nil {
			return err
		}
		return compileExit(result)
	}

	w := formatter.Writer
	if outputFile == "" {
		for _, u := range result.Units {
			if u.Status == store.StatusOK {
				fmt.Fprint(w, u.Listing)
			}
		}
		fmt.Fprintln(w)
	}

	for _, u := range result.Units {
		if u.Status == store.StatusOK {
			fmt.Fprintf(w, "✓ %s: %d forward, %d defined, %d temporaries\n",
				u.Unit, u.Stats.Forward, u.Stats.Defined, u.Stats.Temporaries)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", u.Unit)
		if u.Error.File != "" {
			fmt.Fprintf(w, "%s:%d\n", u.Error.File, u.Error.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n", u.Error.Kind, u.Error.Message)
		for _, c := range u.Error.Causes {
			fmt.Fprintf(w, "    %s\n", c)
		}
		if formatter.Verbose {
			for _, r := range u.Error.Related {
				fmt.Fprintf(w, "  related: %s\n", r)
			}
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote listings to %s\n", outputFile)
	}
	return compileExit(result)
}

func firstFailure(result CompilationResult) UnitOutput {
	for _, u := range result.Units {
		if u.Status != store.StatusOK {
			return u
		}
	}
	return UnitOutput{}
}

func compileExit(result CompilationResult) error {
	if result.Failed > 0 {
		// Lowering errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("lowering failed for %d unit(s)", result.Failed))
	}
	return nil
}

// outputCompileError outputs a single command error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputLoadErrors outputs unit loading errors. Load errors are
// command-level errors (exit code 2).
func outputLoadErrors(formatter *OutputFormatter, what string, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			cliErrors[i] = loadCLIError(err)
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := encodeResponse(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed\n\n", what)
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		ce := loadCLIError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ce.Code, ce.Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
}

func loadCLIError(err error) CLIError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Field != "" && loadErr.Field != "cue" {
			msg = loadErr.Field + ": " + msg
		}
		return CLIError{Code: loadErr.Code, Message: msg, Details: loadErr.Path}
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}
