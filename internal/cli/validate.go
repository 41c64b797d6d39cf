package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flatc/internal/compiler"
)

// ValidationIssue is a validation error of one unit.
type ValidationIssue struct {
	Unit string `json:"unit"`
	compiler.ValidationError
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Units  int               `json:"units"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <unit>...",
		Short: "Validate units without lowering them",
		Long: `Validate CUE units without lowering them.

Decodes each unit and checks the structural rules lowering relies on:
identifiers, types, member owners, constructor and destructor shapes,
variadic tails and macros. Every problem is reported, not just the first.
Faster than compile for development feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadUnits(paths, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, "Validation", loadErrors)
	}

	formatter.VerboseLog("Found %d CUE file(s)", loadResult.FileCount)

	issues := validateAll(loadResult, formatter)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	return outputValidateSuccess(formatter, len(loadResult.Units))
}

// validateAll validates every loaded unit.
func validateAll(loadResult *LoadResult, formatter *OutputFormatter) []ValidationIssue {
	var issues []ValidationIssue
	for _, u := range loadResult.Units {
		formatter.VerboseLog("Validating unit: %s", u.Name)
		for _, e := range compiler.Validate(u) {
			issues = append(issues, ValidationIssue{Unit: u.Name, ValidationError: e})
		}
	}
	return issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, units int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Units: units})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d unit(s) valid\n", units)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: issues,
			},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		if err := encodeResponse(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", issue.Unit, issue.Line)
		} else {
			fmt.Fprintln(formatter.Writer, issue.Unit)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
