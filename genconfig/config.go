// Package genconfig defines the generate.yaml schema that selects the
// headers and binding options for each SUNDIALS module.
//
// A config file maps module names to settings:
//
//	modules:
//	  all:
//	    ignore_functions: ["^SUNDIALSFileOpen$"]
//	  core:
//	    headers:
//	      - include/sundials/sundials_core.h
//	    path: src/core_bindings.cpp
//	    pointer_types: ["SUNHashMap"]
//	    nullable_params: ["tmpl"]
//
// The reserved module name "all" is never generated; its lists are merged
// into every other module's settings.
package genconfig

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"

	"github.com/sundials-codes/sundials4py-generate/internal/codeutil"
)

// Shared is the reserved pseudo-module whose lists apply to every module.
const Shared = "all"

// ErrNoModules is returned when a config file lacks a modules section.
var ErrNoModules = errors.New("modules: section not found")

// Module is the per-module configuration.
type Module struct {
	// Headers are the files whose concatenated contents are processed,
	// resolved relative to the config file's directory.
	Headers []string `yaml:"headers"`

	// Path is the output file for the generated binding code. When empty
	// the generated code is echoed instead.
	Path string `yaml:"path"`

	// PointerTypes adds module-specific opaque handle type names.
	PointerTypes []string `yaml:"pointer_types"`

	// NullableParams lists parameters (bare or "Function.param") whose
	// null native default becomes an explicit None default.
	NullableParams []string `yaml:"nullable_params"`

	// IgnoreEnums, IgnoreClasses and IgnoreFunctions are regex patterns
	// joined into exclusion alternations.
	IgnoreEnums     []string `yaml:"ignore_enums"`
	IgnoreClasses   []string `yaml:"ignore_classes"`
	IgnoreFunctions []string `yaml:"ignore_functions"`

	// MacroDefines are regex patterns selecting macros to export.
	MacroDefines []string `yaml:"macro_defines"`
}

// File is one parsed generate.yaml.
type File struct {
	Modules map[string]Module `yaml:"modules"`
}

// Load reads and decodes a generate.yaml. A missing or empty modules
// section is a configuration error, reported before any header I/O.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if len(f.Modules) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoModules, path)
	}
	return &f, nil
}

// Names returns the real module names in deterministic order, skipping the
// shared pseudo-module.
func (f *File) Names() []string {
	names := maps.Keys(f.Modules)
	sort.Strings(names)
	out := names[:0]
	for _, n := range names {
		if n != Shared {
			out = append(out, n)
		}
	}
	return out
}

// merged returns shared entries followed by module-specific ones, without
// duplicates.
func (f *File) merged(name string, pick func(Module) []string) []string {
	return codeutil.MergeUnique(pick(f.Modules[Shared]), pick(f.Modules[name]))
}

// PointerTypes returns the opaque handle type names for one module.
func (f *File) PointerTypes(name string) []string {
	return f.merged(name, func(m Module) []string { return m.PointerTypes })
}

// NullableParams returns the nullable parameter entries for one module.
func (f *File) NullableParams(name string) []string {
	return f.merged(name, func(m Module) []string { return m.NullableParams })
}

// IgnoreEnums returns the enum exclusion patterns for one module.
func (f *File) IgnoreEnums(name string) []string {
	return f.merged(name, func(m Module) []string { return m.IgnoreEnums })
}

// IgnoreClasses returns the class exclusion patterns for one module.
func (f *File) IgnoreClasses(name string) []string {
	return f.merged(name, func(m Module) []string { return m.IgnoreClasses })
}

// IgnoreFunctions returns the function exclusion patterns for one module.
func (f *File) IgnoreFunctions(name string) []string {
	return f.merged(name, func(m Module) []string { return m.IgnoreFunctions })
}

// MacroDefines returns the macro inclusion patterns for one module.
func (f *File) MacroDefines(name string) []string {
	return f.merged(name, func(m Module) []string { return m.MacroDefines })
}
