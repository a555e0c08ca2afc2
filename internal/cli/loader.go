package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/jeandeaual/go-locale"

	"github.com/roach88/starcube/internal/compiler"
	"github.com/roach88/starcube/internal/model"
)

// LoadResult contains a loaded model and the files it came from.
type LoadResult struct {
	Model     *model.Model
	FileCount int // Number of model files read
}

// LoadError represents an error that occurred during model loading.
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

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No model files found
	ErrCodeLoadFailed   = "E004" // CUE load or compile failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeInvalidModel = "E006" // Model failed validation
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeQuery        = "E008" // Invalid cube, cut, drilldown or measure
	ErrCodeDatabase     = "E009" // Database open or execution error
)

// LoadModel loads a model from a CUE or JSON file, or from a directory
// holding one CUE package.
func LoadModel(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model: %v", err)}
	}

	if !info.IsDir() {
		m, err := compiler.LoadModel(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return &LoadResult{Model: m, FileCount: 1}, nil
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	m, err := compiler.CompileModel(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Model: m, FileCount: len(cueFiles)}, nil
}

// LoadValidModel loads a model and rejects it if validation fails.
func LoadValidModel(path string) (*model.Model, error) {
	res, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	if errs := compiler.ValidateModel(res.Model); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, &LoadError{Code: ErrCodeInvalidModel, Message: strings.Join(msgs, "; ")}
	}
	return res.Model, nil
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

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// systemLocale is replaced in tests.
var systemLocale = locale.GetLocale

// ResolveLocale picks the query locale: the flag, else the model's
// default locale, else the operating system locale. It returns "" when
// none is known.
func ResolveLocale(flag string, m *model.Model) string {
	if flag != "" {
		return flag
	}
	if m != nil && m.Options.Locale != "" {
		return m.Options.Locale
	}
	if l, err := systemLocale(); err == nil {
		return l
	}
	return ""
}
