package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flatc/internal/mangle"
	"github.com/roach88/flatc/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Database string
	Unit     string // optional - filter to one unit
}

// LookupEntry is what is known about one flat name.
type LookupEntry struct {
	Flat      string        `json:"flat_name"`
	Signature string        `json:"signature,omitempty"` // decoded from the name itself
	Matches   []store.Match `json:"matches"`
}

// LookupResult holds the lookup output.
type LookupResult struct {
	Entries []LookupEntry `json:"entries"`
	Missing int           `json:"missing"`
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <flat-name>...",
		Short: "Find which declarations produced flat names",
		Long: `Look up flat names in the run database.

For each name, shows the decoded signature and every recorded run that
emitted it: the unit, the source declaration and its position.

Exit codes:
  0 - Every name was found
  1 - At least one name was never recorded
  2 - Command error (database not found, etc.)

Examples:
  flatc lookup _EC6PersonIB3intB3str --db ./flatc.db
  flatc lookup _ES1A _ES1B --db ./flatc.db --unit pointer_cycle
  flatc lookup main --db ./flatc.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "only show runs of this unit")

	return cmd
}

func runLookup(opts *LookupOptions, names []string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := LookupResult{Entries: make([]LookupEntry, 0, len(names))}
	for _, name := range names {
		entry, err := lookupName(ctx, st, name, opts.Unit)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to look up %s", name), err)
		}
		if len(entry.Matches) == 0 {
			result.Missing++
		}
		result.Entries = append(result.Entries, entry)
	}

	if opts.Format == "json" {
		return outputLookupJSON(cmd, result)
	}
	return outputLookupText(cmd, result, opts.Verbose)
}

func lookupName(ctx context.Context, st *store.Store, name, unit string) (LookupEntry, error) {
	entry := LookupEntry{Flat: name, Matches: []store.Match{}}
	if sig, err := mangle.Demangle(name); err == nil {
		entry.Signature = sig.String()
	} else if !errors.Is(err, mangle.ErrNotMangled) {
		entry.Signature = "malformed: " + err.Error()
	}

	matches, err := st.Lookup(ctx, name)
	if err != nil {
		return LookupEntry{}, err
	}
	for _, m := range matches {
		if unit == "" || m.Unit == unit {
			entry.Matches = append(entry.Matches, m)
		}
	}
	return entry, nil
}

// outputLookupJSON outputs the lookup result as JSON.
func outputLookupJSON(cmd *cobra.Command, result LookupResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Missing > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_NOT_RECORDED",
			Message: fmt.Sprintf("%d name(s) not recorded", result.Missing),
		}
	}
	if err := encodeResponse(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	return lookupExit(result)
}

// outputLookupText outputs the lookup result in human-readable format.
func outputLookupText(cmd *cobra.Command, result LookupResult, verbose bool) error {
	w := cmd.OutOrStdout()

	for i, e := range result.Entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, e.Flat)
		if e.Signature != "" {
			fmt.Fprintf(w, "  %s\n", e.Signature)
		}
		if len(e.Matches) == 0 {
			fmt.Fprintln(w, "  not recorded")
			continue
		}
		for _, m := range e.Matches {
			fmt.Fprintf(w, "  run #%d %s: %s %s (decl #%d", m.Seq, m.Unit, m.Kind, m.DeclName, m.Index)
			if m.File != "" {
				fmt.Fprintf(w, " at %s:%d", m.File, m.Line)
			}
			fmt.Fprint(w, ")")
			if verbose {
				fmt.Fprintf(w, " [%s]", m.RunID)
			}
			fmt.Fprintln(w)
		}
	}
	return lookupExit(result)
}

func lookupExit(result LookupResult) error {
	if result.Missing > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d name(s) not recorded", result.Missing))
	}
	return nil
}
