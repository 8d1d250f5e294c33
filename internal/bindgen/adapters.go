package bindgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsupportedReturnShape is returned when the handle adapter meets a
// tuple return whose element types it cannot decompose.
var ErrUnsupportedReturnShape = errors.New("return type shape is not yet supported")

var countParamRe = regexp.MustCompile(`(?i)^(n|num\w*|count|len|size|nvec\w*|nsum\w*)$`)

var integerTypes = map[string]bool{
	"int":            true,
	"long":           true,
	"size_t":         true,
	"int32_t":        true,
	"int64_t":        true,
	"sunindextype":   true,
	"suncountertype": true,
}

var arithmeticTypes = map[string]bool{
	"int":            true,
	"long":           true,
	"size_t":         true,
	"int32_t":        true,
	"int64_t":        true,
	"float":          true,
	"double":         true,
	"sunindextype":   true,
	"suncountertype": true,
	"sunrealtype":    true,
	"sunbooleantype": true,
}

// AdaptArrayPointerToVector rewrites a count parameter followed by one or
// more pointer parameters into std::vector parameters, deriving the count
// from the first vector's size. It must run before every other adapter so
// that array pointers are never mistaken for output parameters.
func AdaptArrayPointerToVector(af *AdaptedFunction) (*LambdaAdapter, error) {
	countIdx := -1
	var vecIdxs []int
	for i, p := range af.Params {
		if p.Type.Pointer != 0 || !integerTypes[p.Type.Name] || !countParamRe.MatchString(p.Name) {
			continue
		}
		for j := i + 1; j < len(af.Params) && isArrayElem(af, af.Params[j]); j++ {
			vecIdxs = append(vecIdxs, j)
		}
		if len(vecIdxs) > 0 {
			countIdx = i
			break
		}
	}
	if countIdx < 0 {
		return nil, nil
	}

	newParams := make([]AdaptedParam, 0, len(af.Params)-1)
	newCallArgs := append([]string(nil), af.CallArgs...)
	first := af.Params[vecIdxs[0]].Name
	newCallArgs[countIdx] = fmt.Sprintf("static_cast<%s>(%s.size())", af.Params[countIdx].Type.Name, first)

	isVec := map[int]bool{}
	for _, j := range vecIdxs {
		isVec[j] = true
	}
	for i, p := range af.Params {
		if i == countIdx {
			continue
		}
		if isVec[i] {
			elem := p.Type
			elem.Pointer--
			elem.Const = false
			cpp := fmt.Sprintf("std::vector<%s>&", elem.String())
			if p.Type.Const {
				cpp = "const " + cpp
			}
			p.CppType = cpp
			newCallArgs[i] = p.Name + ".data()"
		}
		newParams = append(newParams, p)
	}

	return &LambdaAdapter{
		LambdaName:  af.Source.Name + "_adapt_array_pointer_to_std_vector",
		NewParams:   newParams,
		NewCallArgs: newCallArgs,
	}, nil
}

// isArrayElem limits array rewriting to pointers whose element is a handle
// or arithmetic type; char* and void* never become vectors.
func isArrayElem(af *AdaptedFunction, p AdaptedParam) bool {
	if p.CppType != "" || p.Type.Pointer != 1 {
		return false
	}
	return af.Options().IsPointerType(p.Type.Name) || arithmeticTypes[p.Type.Name]
}

// AdaptModifiableToReturn rewrites "modify through pointer" output
// parameters into return values: e.g.
// int CVodeGetNumSteps(void* mem, long* n) becomes
// CVodeGetNumSteps(mem) -> std::tuple<int, long>. It must run before the
// handle adapter, which inspects the post-transform return shape.
func AdaptModifiableToReturn(af *AdaptedFunction) (*LambdaAdapter, error) {
	opts := af.Options()
	eligible, err := compileNameFilter("output parameter", opts.OutputParamRegex)
	if err != nil {
		return nil, err
	}
	if !eligible.matches(af.Source.Name) {
		return nil, nil
	}

	newCallArgs := append([]string(nil), af.CallArgs...)
	var newParams []AdaptedParam
	var outputs []AdaptedParam
	var inputCode []string
	for _, p := range af.Params {
		if !isOutputParam(af, p) {
			newParams = append(newParams, p)
			continue
		}
		valueType := p.Type
		valueType.Pointer--
		outputs = append(outputs, AdaptedParam{Name: p.Name, Type: valueType})
		inputCode = append(inputCode, fmt.Sprintf("%s %s = %s();", valueType.String(), p.Name, valueType.String()))
		for i, arg := range newCallArgs {
			if arg == p.Name {
				newCallArgs[i] = "&" + p.Name
			}
		}
	}
	if len(outputs) == 0 {
		return nil, nil
	}

	la := &LambdaAdapter{
		LambdaName:  af.Source.Name + "_adapt_modifiable_immutable_to_return",
		NewParams:   newParams,
		NewCallArgs: newCallArgs,
		InputCode:   inputCode,
	}
	if newParams == nil {
		la.NewParams = []AdaptedParam{}
	}

	outNames := make([]string, len(outputs))
	outTypes := make([]string, len(outputs))
	for i, o := range outputs {
		outNames[i] = o.Name
		outTypes[i] = o.Type.String()
	}

	if af.NativeReturnsVoid() {
		if len(outputs) == 1 {
			la.NewReturnType = outTypes[0]
			la.NewReturnParts = outNames
			return la, nil
		}
		la.NewReturnType = fmt.Sprintf("std::tuple<%s>", strings.Join(outTypes, ", "))
		la.NewReturnParts = outNames
		return la, nil
	}

	la.NewReturnType = fmt.Sprintf("std::tuple<%s>", strings.Join(append([]string{af.ReturnType}, outTypes...), ", "))
	la.NewReturnParts = append([]string{"lambda_result"}, outNames...)
	return la, nil
}

// isOutputParam matches non-const pointers to arithmetic or handle values
// with no declared default. Parameters already rewritten by an earlier
// adapter are never outputs.
func isOutputParam(af *AdaptedFunction, p AdaptedParam) bool {
	if p.CppType != "" || p.Default != "" || p.Type.Pointer != 1 || p.Type.Const {
		return false
	}
	return arithmeticTypes[p.Type.Name] || af.Options().IsPointerType(p.Type.Name)
}

// AdaptHandleReturnsToSharedPtr rewrites returns of opaque handle types to
// shared-ownership wrappers paired with the type's deleter, and records
// the lifetime dependency on a context parameter when one is present. For
// tuple returns only handle-typed slots are wrapped; all other slots pass
// through unchanged.
func AdaptHandleReturnsToSharedPtr(af *AdaptedFunction) (*LambdaAdapter, error) {
	opts := af.Options()
	if strings.Contains(af.Source.Comments(), "nb::rv_policy::reference") {
		return nil, nil
	}

	ret := af.ReturnType
	if strings.HasPrefix(ret, "std::tuple") {
		return adaptTupleHandles(af, ret)
	}
	if !opts.IsPointerType(ret) {
		return nil, nil
	}
	if len(af.ReturnParts) != 1 {
		return nil, fmt.Errorf("%w: %s returns %s with %d result expressions",
			ErrUnsupportedReturnShape, af.Source.Name, ret, len(af.ReturnParts))
	}

	// The returned handle must not outlive the context it was created from.
	for idx, p := range af.Params {
		if p.CppType == "" && p.Type.Name == opts.ContextType {
			af.AddAnnotation(fmt.Sprintf("nb::keep_alive<0, %d>()", idx+1))
		}
	}

	return &LambdaAdapter{
		LambdaName:     af.Source.Name + "_adapt_return_type_to_shared_ptr",
		NewReturnType:  fmt.Sprintf("std::shared_ptr<std::remove_pointer_t<%s>>", ret),
		NewReturnParts: []string{wrapShared(ret, af.ReturnParts[0])},
	}, nil
}

// wrapShared builds the shared-ownership construction for one raw handle
// expression, pairing it with the handle type's deleter.
func wrapShared(handleType, expr string) string {
	return fmt.Sprintf("our_make_shared<std::remove_pointer_t<%s>, %sDeleter>(%s)",
		handleType, handleType, expr)
}

func adaptTupleHandles(af *AdaptedFunction, ret string) (*LambdaAdapter, error) {
	opts := af.Options()
	slots, err := tupleSlots(ret)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(af.ReturnParts) {
		return nil, fmt.Errorf("%w: %s has %d tuple slots but %d result expressions",
			ErrUnsupportedReturnShape, af.Source.Name, len(slots), len(af.ReturnParts))
	}

	var nurseIdxs []int
	for i, s := range slots {
		if opts.IsPointerType(s) {
			nurseIdxs = append(nurseIdxs, i)
		}
	}
	if len(nurseIdxs) == 0 {
		return nil, nil
	}

	// Every handle produced by the call keeps the context parameter alive.
	nurseArgs := make([]string, len(nurseIdxs))
	for i, n := range nurseIdxs {
		nurseArgs[i] = fmt.Sprintf("%d", n)
	}
	for idx, p := range af.Params {
		if p.CppType == "" && p.Type.Name == opts.ContextType {
			af.AddAnnotation(fmt.Sprintf("nb::call_policy<sundials4py::returns_references_to<%d, %s>>()",
				idx+1, strings.Join(nurseArgs, ", ")))
		}
	}

	// Wrap only the handle-typed slots; every other slot passes through
	// its original expression unchanged, in the original order.
	newSlots := append([]string(nil), slots...)
	parts := append([]string(nil), af.ReturnParts...)
	for _, i := range nurseIdxs {
		newSlots[i] = fmt.Sprintf("std::shared_ptr<std::remove_pointer_t<%s>>", slots[i])
		parts[i] = wrapShared(slots[i], parts[i])
	}

	return &LambdaAdapter{
		LambdaName:     af.Source.Name + "_adapt_return_type_to_shared_ptr",
		NewReturnType:  fmt.Sprintf("std::tuple<%s>", strings.Join(newSlots, ", ")),
		NewReturnParts: parts,
	}, nil
}

// tupleSlots splits the element types out of a std::tuple<...> text. A slot
// that itself carries template arguments cannot be decomposed by this
// structural split and is a fatal invariant violation.
func tupleSlots(ret string) ([]string, error) {
	open := strings.Index(ret, "<")
	end := strings.LastIndex(ret, ">")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReturnShape, ret)
	}
	var slots []string
	for _, s := range strings.Split(ret[open+1:end], ",") {
		s = strings.TrimSpace(s)
		if strings.ContainsAny(s, "<>") {
			return nil, fmt.Errorf("%w: tuple element %q", ErrUnsupportedReturnShape, s)
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// AdaptNullableWithDefaultNull gives pointer parameters whose native
// default is null (or that are configured nullable) an explicit nullptr
// default, rendered as an optional with a None default on the Python side.
func AdaptNullableWithDefaultNull(af *AdaptedFunction) (*LambdaAdapter, error) {
	opts := af.Options()
	newParams := append([]AdaptedParam(nil), af.Params...)
	changed := false
	for i := range newParams {
		p := &newParams[i]
		// Handle typedefs are pointers even at depth zero.
		if p.CppType != "" || (p.Type.Pointer == 0 && !opts.IsPointerType(p.Type.Name)) {
			continue
		}
		switch {
		case isNullDefault(p.Default),
			opts.isNullableParam(af.Source.Name, p.Name),
			opts.ConstCharDefaultNull && p.Type.Const && p.Type.Name == "char" && p.Type.Pointer == 1:
			p.Default = "nullptr"
			changed = true
		}
	}
	if !changed {
		return nil, nil
	}
	return &LambdaAdapter{
		LambdaName: af.Source.Name + "_adapt_default_arg_pointer_with_default_null",
		NewParams:  newParams,
	}, nil
}

func isNullDefault(d string) bool {
	return d == "NULL" || d == "nullptr" || d == "0"
}
