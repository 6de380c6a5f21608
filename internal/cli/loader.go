package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pggraphql/internal/compiler"
	"github.com/roach88/pggraphql/internal/qerr"
	"github.com/roach88/pggraphql/internal/schema"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast reports only the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every error.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a schema from a directory.
type LoadResult struct {
	Schema    *schema.Schema
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema loads and compiles the CUE schema definition in dir.
// If mode is LoadModeFailFast, at most one error is returned.
// A nil result means the directory could not be read or built at all.
func LoadSchema(dir string, inflector schema.Inflector, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	s, err := compiler.CompileSchema(value, schema.WithInflector(inflector))
	if err != nil {
		var errs []error
		for _, e := range splitErrors(err) {
			errs = append(errs, convertCompileError(e))
			if mode == LoadModeFailFast {
				break
			}
		}
		return result, errs
	}
	result.Schema = s

	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// splitErrors flattens joined errors found anywhere in err's chain.
func splitErrors(err error) []error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			var out []error
			for _, inner := range multi.Unwrap() {
				out = append(out, splitErrors(inner)...)
			}
			return out
		}
	}
	return []error{err}
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var defErr *compiler.DefinitionError
	if errors.As(err, &defErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(defErr.Option),
			Message: defErr.Message,
			Pos:     defErr.Pos,
		}
	}
	var qe *qerr.Error
	if errors.As(err, &qe) {
		code := ErrCodeInvalidSchema
		if qe.Code == qerr.CodeDuplicateFieldDeclaration {
			code = ErrCodeDuplicateField
		}
		return &LoadError{Code: code, Message: qe.Message}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
// Query compilation errors are reported with their own codes (UNKNOWN_FIELD, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadQuery    = "E008" // Query file unreadable or malformed
	ErrCodeDatabase    = "E009" // Database connection or execution failed
	ErrCodeTestFailed  = "E010" // One or more scenarios failed

	// Schema definition errors
	ErrCodeInvalidSchema   = "E101" // Invalid schema definition
	ErrCodeDuplicateField  = "E102" // Field declared twice
	ErrCodeInvalidLink     = "E103" // Invalid link declaration
	ErrCodeInvalidField    = "E104" // Invalid field declaration
	ErrCodeInvalidFragment = "E105" // Fragment is not a string or {sql, args}
	ErrCodeInvalidRoot     = "E106" // Invalid root declaration
	ErrCodeInvalidNullPK   = "E107" // Invalid null_pk value

	// Validation findings
	ErrCodeDanglingReference = "E110" // Root or link targets an undeclared type
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "type", "table", "cue":
		return ErrCodeInvalidSchema
	case "link.kind":
		return ErrCodeInvalidLink
	case "fields", "fields.name", "fields.as":
		return ErrCodeInvalidField
	case "filter", "order_by", "table_query", "guard", "expr", "fk", "pk", "args", "sql":
		return ErrCodeInvalidFragment
	case "root":
		return ErrCodeInvalidRoot
	case "null_pk":
		return ErrCodeInvalidNullPK
	default:
		return ErrCodeGeneric
	}
}
