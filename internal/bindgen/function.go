package bindgen

import (
	"strings"

	"github.com/sundials-codes/sundials4py-generate/internal/cparse"
)

// AdaptedParam is one parameter of the bound signature. Type is the parsed
// declaration; CppType, when set, is a rewritten C++ type that replaces it
// in the emitted lambda (e.g. a std::vector reference).
type AdaptedParam struct {
	Name    string
	Type    cparse.Type
	CppType string
	Default string
}

// TypeText returns the C++ type emitted for the parameter.
func (p AdaptedParam) TypeText() string {
	if p.CppType != "" {
		return p.CppType
	}
	return p.Type.String()
}

// LambdaAdapter describes one rewrite of a function's shape. Zero-valued
// fields leave the corresponding part of the signature unchanged.
type LambdaAdapter struct {
	LambdaName    string
	NewReturnType string
	NewParams     []AdaptedParam
	NewCallArgs   []string
	// NewReturnParts replaces the expressions composing the returned
	// value, one per slot of the (possibly tuple shaped) return type.
	NewReturnParts []string
	InputCode      []string
}

// FunctionAdapter inspects the current adapted shape and returns either nil
// ("no change") or a rewrite to apply. A returned error aborts generation.
type FunctionAdapter func(*AdaptedFunction) (*LambdaAdapter, error)

// AdaptedFunction is the evolving shape of one binding as the adapter
// pipeline runs. CallArgs are the expressions handed to the native call in
// the native parameter order; Params is the bound (Python-facing)
// signature; ReturnParts are the expressions that build the returned value
// and always match the slots of ReturnType.
type AdaptedFunction struct {
	Source      *cparse.Function
	ReturnType  string
	Params      []AdaptedParam
	CallArgs    []string
	ReturnParts []string
	InputCode   []string
	Annotations []string
	Applied     []string

	opts *Options
}

// Options returns the policy the pipeline is running under.
func (af *AdaptedFunction) Options() *Options { return af.opts }

// NativeReturnsVoid reports whether the underlying C function returns void.
func (af *AdaptedFunction) NativeReturnsVoid() bool {
	return af.Source.ReturnType.IsVoid()
}

// AddAnnotation appends a nanobind policy annotation such as a keep_alive
// or call_policy directive.
func (af *AdaptedFunction) AddAnnotation(a string) {
	af.Annotations = append(af.Annotations, a)
}

func newAdaptedFunction(fn *cparse.Function, opts *Options) *AdaptedFunction {
	af := &AdaptedFunction{
		Source:     fn,
		ReturnType: fn.ReturnType.String(),
		opts:       opts,
	}
	for _, p := range fn.Params {
		af.Params = append(af.Params, AdaptedParam{Name: p.Name, Type: p.Type, Default: p.Default})
		af.CallArgs = append(af.CallArgs, p.Name)
	}
	if !af.NativeReturnsVoid() {
		af.ReturnParts = []string{"lambda_result"}
	}
	return af
}

func (af *AdaptedFunction) apply(la *LambdaAdapter) {
	if la.NewReturnType != "" {
		af.ReturnType = la.NewReturnType
	}
	if la.NewParams != nil {
		af.Params = la.NewParams
	}
	if la.NewCallArgs != nil {
		af.CallArgs = la.NewCallArgs
	}
	if la.NewReturnParts != nil {
		af.ReturnParts = la.NewReturnParts
	}
	af.InputCode = append(af.InputCode, la.InputCode...)
	af.Applied = append(af.Applied, la.LambdaName)
}

// ReturnStatement renders the return built from ReturnParts; empty when
// there is nothing to return.
func (af *AdaptedFunction) ReturnStatement() string {
	switch len(af.ReturnParts) {
	case 0:
		return ""
	case 1:
		return "return " + af.ReturnParts[0] + ";"
	default:
		return "return std::make_tuple(" + strings.Join(af.ReturnParts, ", ") + ");"
	}
}

// Adapt runs the configured adapter pipeline over one parsed declaration.
func Adapt(fn *cparse.Function, opts *Options) (*AdaptedFunction, error) {
	af := newAdaptedFunction(fn, opts)
	for _, adapter := range opts.FnAdapters {
		la, err := adapter(af)
		if err != nil {
			return nil, err
		}
		if la == nil {
			continue
		}
		af.apply(la)
	}
	return af, nil
}
