package bindgen

import (
	"fmt"
	"strings"

	"github.com/sundials-codes/sundials4py-generate/internal/codeutil"
	"github.com/sundials-codes/sundials4py-generate/internal/cparse"
)

// Result holds the generated text segments. GlueCode and PydefCode are
// written back to back into the module's output file; StubCode is produced
// for parity but currently never written, since generated and hand-written
// stubs cannot be combined yet.
type Result struct {
	GlueCode  string
	PydefCode string
	StubCode  string
}

// generatedHeader marks emitted files so they are never re-fed to the
// generator by mistake.
const generatedHeader = "// Code generated by 'sundials4py-generate'. DO NOT EDIT."

// Generate preprocesses and parses the concatenated header source, runs
// every surviving function through the adapter pipeline, and emits the
// nanobind binding text for one module.
func Generate(opts *Options, moduleName, source string) (*Result, error) {
	f, err := opts.compileFilters()
	if err != nil {
		return nil, err
	}

	if opts.Preprocess != nil {
		source = opts.Preprocess(source)
	}
	unit, err := cparse.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse headers for module %s: %w", moduleName, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "void init_%s(nb::module_& m)\n{\n", moduleName)

	emitClasses(&b, f, unit)
	emitEnums(&b, opts, f, unit)
	emitMacros(&b, f, unit)

	for i := range unit.Functions {
		fn := &unit.Functions[i]
		if f.fns.matches(fn.Name) {
			continue
		}
		af, err := Adapt(fn, opts)
		if err != nil {
			return nil, fmt.Errorf("adapt function %s: %w", fn.Name, err)
		}
		emitFunction(&b, opts, af)
	}

	b.WriteString("}\n")

	return &Result{
		GlueCode:  glueCode(),
		PydefCode: b.String(),
	}, nil
}

func glueCode() string {
	return generatedHeader + `

#include <nanobind/nanobind.h>
#include <nanobind/stl/shared_ptr.h>
#include <nanobind/stl/tuple.h>
#include <nanobind/stl/vector.h>

#include <sundials4py/sundials4py.hpp>

namespace nb = nanobind;

using namespace sundials4py;

`
}

func emitClasses(b *strings.Builder, f *filters, unit *cparse.Unit) {
	for _, td := range unit.Opaques {
		if f.classes.matches(td.Name) {
			continue
		}
		fmt.Fprintf(b, "    nb::class_<std::remove_pointer_t<%s>>(m, %q);\n", td.Name, td.Name)
	}
	// Plain structs are bound opaquely: no members, no default ctor.
	for _, s := range unit.Structs {
		if f.classes.matches(s.Name) {
			continue
		}
		fmt.Fprintf(b, "    nb::class_<%s>(m, %q);\n", s.Name, s.Name)
	}
	b.WriteString("\n")
}

func emitEnums(b *strings.Builder, opts *Options, f *filters, unit *cparse.Unit) {
	for _, e := range unit.Enums {
		if f.enums.matches(e.Name) {
			continue
		}
		fmt.Fprintf(b, "    nb::enum_<%s>(m, %q)\n", e.Name, e.Name)
		prefix := ""
		if opts.EnumRemoveValuePrefix {
			prefix = commonValuePrefix(e.Values)
		}
		for _, v := range e.Values {
			fmt.Fprintf(b, "        .value(%q, %s)\n", strings.TrimPrefix(v.Name, prefix), v.Name)
		}
		if opts.EnumExportValues {
			b.WriteString("        .export_values()")
		}
		b.WriteString(";\n\n")
	}
}

// commonValuePrefix finds the longest shared prefix ending at an underscore.
func commonValuePrefix(values []cparse.EnumValue) string {
	if len(values) < 2 {
		return ""
	}
	prefix := values[0].Name
	for _, v := range values[1:] {
		for !strings.HasPrefix(v.Name, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	if i := strings.LastIndex(prefix, "_"); i >= 0 {
		return prefix[:i+1]
	}
	return ""
}

func emitMacros(b *strings.Builder, f *filters, unit *cparse.Unit) {
	emitted := false
	for _, mac := range unit.Macros {
		if !f.macros.matches(mac.Name) {
			continue
		}
		fmt.Fprintf(b, "    m.attr(%q) = %s;\n", mac.Name, mac.Name)
		emitted = true
	}
	if emitted {
		b.WriteString("\n")
	}
}

func emitFunction(b *strings.Builder, opts *Options, af *AdaptedFunction) {
	pyName := af.Source.Name
	if opts.ConvertToSnakeCase {
		pyName = codeutil.SnakeCase(pyName)
	}

	var tail []string
	for _, p := range af.Params {
		switch {
		case p.Default == "nullptr":
			tail = append(tail, fmt.Sprintf("nb::arg(%q) = nb::none()", p.Name))
		case p.Default != "":
			tail = append(tail, fmt.Sprintf("nb::arg(%q) = %s", p.Name, p.Default))
		default:
			tail = append(tail, fmt.Sprintf("nb::arg(%q)", p.Name))
		}
	}
	tail = append(tail, af.Annotations...)
	if !opts.CommentsExclude && af.Source.Doc != "" {
		tail = append(tail, docLiteral(af.Source.Doc))
	}

	if len(af.Applied) == 0 {
		fmt.Fprintf(b, "    m.def(%q, %s", pyName, af.Source.Name)
		for _, t := range tail {
			b.WriteString(", " + t)
		}
		b.WriteString(");\n\n")
		return
	}

	fmt.Fprintf(b, "    m.def(%q,\n", pyName)
	fmt.Fprintf(b, "        [](%s) -> %s\n", lambdaParams(af), af.ReturnType)
	b.WriteString("        {\n")
	for _, line := range af.InputCode {
		b.WriteString("            " + line + "\n")
	}
	call := fmt.Sprintf("%s(%s);", af.Source.Name, strings.Join(af.CallArgs, ", "))
	if af.NativeReturnsVoid() {
		b.WriteString("            " + call + "\n")
	} else {
		b.WriteString("            auto lambda_result = " + call + "\n")
	}
	if ret := af.ReturnStatement(); ret != "" {
		b.WriteString("            " + ret + "\n")
	}
	b.WriteString("        }")
	for _, t := range tail {
		b.WriteString(", " + t)
	}
	b.WriteString(");\n\n")
}

func lambdaParams(af *AdaptedFunction) string {
	parts := make([]string, len(af.Params))
	for i, p := range af.Params {
		parts[i] = p.TypeText() + " " + p.Name
		if p.Default != "" {
			parts[i] += " = " + p.Default
		}
	}
	return strings.Join(parts, ", ")
}

func docLiteral(doc string) string {
	doc = strings.ReplaceAll(doc, `\`, `\\`)
	doc = strings.ReplaceAll(doc, `"`, `\"`)
	doc = strings.ReplaceAll(doc, "\n", `\n`)
	return `"` + doc + `"`
}
