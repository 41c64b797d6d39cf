package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/flatc/internal/mangle"
)

const (
	historyFile = ".flatc_history"
	promptText  = "flat> "
)

// DemangleEntry is the decoded form of one name.
type DemangleEntry struct {
	Flat      string `json:"flat_name"`
	Kind      string `json:"kind,omitempty"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewDemangleCommand creates the demangle command.
func NewDemangleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demangle [flat-name]...",
		Short: "Decode flat names into signatures",
		Long: `Decode flat names back into the declarations they name.

With arguments, decodes each one. Without arguments, reads one name per
line from standard input; on a terminal this is an interactive prompt
with history. Names that are not mangled (main, C-linkage functions)
are echoed as is.

Examples:
  flatc demangle _EC6PersonIB3intB3str
  nm -j prog.o | flatc demangle --format json
  flatc demangle`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemangle(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDemangle(opts *RootOptions, names []string, cmd *cobra.Command) error {
	if len(names) > 0 {
		entries := make([]DemangleEntry, len(names))
		for i, name := range names {
			entries[i] = demangleName(name)
		}
		return outputDemangle(cmd, opts, entries)
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(f) && liner.TerminalSupported() && opts.Format != "json" {
		return demangleInteractive(cmd)
	}

	var entries []DemangleEntry
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries = append(entries, demangleName(line))
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read names", err)
	}
	return outputDemangle(cmd, opts, entries)
}

// isTerminal reports whether f is a character device. liner only
// inspects $TERM, so piped input must be ruled out here.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func demangleName(name string) DemangleEntry {
	sig, err := mangle.Demangle(name)
	switch {
	case errors.Is(err, mangle.ErrNotMangled):
		return DemangleEntry{Flat: name, Signature: name}
	case err != nil:
		return DemangleEntry{Flat: name, Error: err.Error()}
	}
	return DemangleEntry{Flat: name, Kind: string(sig.Kind), Signature: sig.String()}
}

func outputDemangle(cmd *cobra.Command, opts *RootOptions, entries []DemangleEntry) error {
	failed := 0
	for _, e := range entries {
		if e.Error != "" {
			failed++
		}
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: entries}
		if failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_MALFORMED_NAME", Message: fmt.Sprintf("%d malformed name(s)", failed)}
		}
		if err := encodeResponse(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, e := range entries {
			writeDemangled(w, e)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d malformed name(s)", failed))
	}
	return nil
}

func writeDemangled(w io.Writer, e DemangleEntry) {
	if e.Error != "" {
		fmt.Fprintf(w, "%s: error: %s\n", e.Flat, e.Error)
		return
	}
	fmt.Fprintf(w, "%s\t%s\n", e.Flat, e.Signature)
}

// demangleInteractive runs the interactive prompt until EOF or :quit.
func demangleInteractive(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(w, "Enter flat names to decode. Ctrl+D or :quit exits.")
	for {
		line, err := ln.Prompt(promptText)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read input", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit":
			return nil
		}
		ln.AppendHistory(line)
		writeDemangled(w, demangleName(line))
	}
}
