package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/flatc/internal/frontend"
	"github.com/roach88/flatc/internal/ir"
)

// LoadMode controls how errors are handled during unit loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the units loaded from the command arguments.
type LoadResult struct {
	Units     []*ir.Unit
	Paths     []string // source path of each unit
	FileCount int      // Number of CUE files read
}

// LoadError represents an error that occurred during unit loading.
type LoadError struct {
	Code    string
	Path    string
	Field   string    // decoding path inside the unit, if any
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadUnits loads one unit per path. A path is either a .cue file or a
// directory holding one CUE package.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadUnits(paths []string, mode LoadMode) (*LoadResult, []error) {
	if len(paths) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no units given"}}
	}

	result := &LoadResult{}
	var errs []error
	for _, path := range paths {
		u, files, err := loadUnit(path)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Units = append(result.Units, u)
		result.Paths = append(result.Paths, path)
		result.FileCount += files
	}
	return result, errs
}

func loadUnit(path string) (*ir.Unit, int, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Path: path, Message: fmt.Sprintf("unit not found: %s", path)}
	}
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Path: path, Message: fmt.Sprintf("error accessing unit: %v", err)}
	}

	files := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, 0, &LoadError{Code: ErrCodeScanError, Path: path, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, 0, &LoadError{Code: ErrCodeNoFiles, Path: path, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		files = len(cueFiles)
	} else if filepath.Ext(path) != ".cue" {
		return nil, 0, &LoadError{Code: ErrCodeNoFiles, Path: path, Message: fmt.Sprintf("not a CUE file: %s", path)}
	}

	u, err := frontend.LoadUnit(path)
	if err != nil {
		return nil, 0, convertFrontendError(err, path)
	}
	return u, files, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Nested
// directories are separate packages and are not part of the unit.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertFrontendError converts a frontend error to a LoadError with position info.
func convertFrontendError(err error, path string) *LoadError {
	var fe *frontend.Error
	if errors.As(err, &fe) {
		code := ErrCodeDecodeFailed
		if fe.Field == "cue" {
			code = ErrCodeLoadFailed
		}
		return &LoadError{
			Code:    code,
			Path:    path,
			Field:   fe.Field,
			Message: fe.Message,
			Pos:     fe.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Path:    path,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
// Lowering errors are reported by their diag kind instead.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load or build failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeDecodeFailed = "E006" // CUE value is not a well-formed unit
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeDatabase     = "E008" // Run database error
)
