package bindgen

import (
	"fmt"
	"regexp"
	"strings"
)

// Options carries all generation policy for one module. A fresh value is
// derived per module from a shared base; nothing mutates an Options after
// generation starts.
type Options struct {
	// PointerTypes are typedef names that are pointers to undisclosed
	// structs, used by SUNDIALS as capability handles.
	PointerTypes []string

	// ContextType is the handle type whose lifetime must outlive every
	// object created from it.
	ContextType string

	// NullableParams lists parameters that accept a null default, either
	// as a bare parameter name or in "Function.param" form.
	NullableParams []string

	// ConstCharDefaultNull allows const char* parameters to default to null.
	ConstCharDefaultNull bool

	// ConvertToSnakeCase renames bound functions to snake_case.
	ConvertToSnakeCase bool

	// CommentsExclude drops header comments instead of emitting docstrings.
	CommentsExclude bool

	// EnumExportValues exports enum values into the module namespace.
	EnumExportValues bool

	// EnumRemoveValuePrefix strips the common prefix from exported enum
	// value names. SUNDIALS keeps the prefix, so this is off by default.
	EnumRemoveValuePrefix bool

	EnumExcludeRegex  string
	ClassExcludeRegex string
	FnExcludeRegex    string
	MacroIncludeRegex string

	// OutputParamRegex selects functions whose modifiable pointer
	// parameters are rewritten into return values.
	OutputParamRegex string

	// Preprocess is applied to the concatenated header text before parsing.
	Preprocess func(string) string

	// FnAdapters run in order against every bound function. The order is a
	// contract: each adapter assumes the signature shape produced by the
	// ones before it.
	FnAdapters []FunctionAdapter
}

// DefaultOptions returns the base policy shared by all modules: the
// SUNDIALS handle types that are not package specific, the fixed binding
// flags, and the adapter pipeline.
func DefaultOptions() *Options {
	return &Options{
		PointerTypes: []string{
			"N_Vector",
			"SUNAdaptController",
			"SUNAdjointCheckpointScheme",
			"MRIStepInnerStepper",
			"SUNAdjointStepper",
			"SUNContext",
			"SUNDomEigEstimator",
			"SUNErrHandler",
			"SUNLinearSolver",
			"SUNLogger",
			"SUNMatrix",
			"SUNMemoryHelper",
			"SUNNonlinearSolver",
			"SUNProfiler",
			"SUNStepper",
		},
		ContextType:          "SUNContext",
		ConstCharDefaultNull: true,
		ConvertToSnakeCase:   false,
		CommentsExclude:      false,
		EnumExportValues:     true,
		OutputParamRegex:     ".*",
		Preprocess:           PreprocessHeader,
		FnAdapters: []FunctionAdapter{
			AdaptArrayPointerToVector,  // must go first
			AdaptModifiableToReturn,    // must go second
			AdaptHandleReturnsToSharedPtr,
			AdaptNullableWithDefaultNull,
		},
	}
}

// Clone returns an independent copy; mutating the clone's slices never
// affects the base.
func (o *Options) Clone() *Options {
	c := *o
	c.PointerTypes = append([]string(nil), o.PointerTypes...)
	c.NullableParams = append([]string(nil), o.NullableParams...)
	c.FnAdapters = append([]FunctionAdapter(nil), o.FnAdapters...)
	return &c
}

// IsPointerType reports whether name is a configured opaque handle type.
func (o *Options) IsPointerType(name string) bool {
	for _, t := range o.PointerTypes {
		if t == name {
			return true
		}
	}
	return false
}

// isNullableParam matches both bare and function-qualified entries.
func (o *Options) isNullableParam(fnName, paramName string) bool {
	qualified := fnName + "." + paramName
	for _, n := range o.NullableParams {
		if n == paramName || n == qualified {
			return true
		}
	}
	return false
}

// nameFilter matches names against a compiled pipe-joined pattern. The
// zero filter matches nothing.
type nameFilter struct {
	re *regexp.Regexp
}

func (f nameFilter) matches(name string) bool {
	return f.re != nil && f.re.MatchString(name)
}

func compileNameFilter(kind, pattern string) (nameFilter, error) {
	if strings.TrimSpace(pattern) == "" {
		return nameFilter{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nameFilter{}, fmt.Errorf("invalid %s pattern %q: %w", kind, pattern, err)
	}
	return nameFilter{re: re}, nil
}

// filters holds the module's compiled patterns. Compiling everything up
// front surfaces a malformed config pattern before any output is produced.
type filters struct {
	enums   nameFilter
	classes nameFilter
	fns     nameFilter
	macros  nameFilter
	outputs nameFilter
}

func (o *Options) compileFilters() (*filters, error) {
	var f filters
	var err error
	if f.enums, err = compileNameFilter("enum exclusion", o.EnumExcludeRegex); err != nil {
		return nil, err
	}
	if f.classes, err = compileNameFilter("class exclusion", o.ClassExcludeRegex); err != nil {
		return nil, err
	}
	if f.fns, err = compileNameFilter("function exclusion", o.FnExcludeRegex); err != nil {
		return nil, err
	}
	if f.macros, err = compileNameFilter("macro include", o.MacroIncludeRegex); err != nil {
		return nil, err
	}
	if f.outputs, err = compileNameFilter("output parameter", o.OutputParamRegex); err != nil {
		return nil, err
	}
	return &f, nil
}
