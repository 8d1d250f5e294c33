package bindgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sundials-codes/sundials4py-generate/internal/cparse"
)

func parseFn(t *testing.T, decl string) *cparse.Function {
	t.Helper()
	unit, err := cparse.Parse(decl)
	require.NoError(t, err)
	require.Len(t, unit.Functions, 1, "expected exactly one declaration in %q", decl)
	return &unit.Functions[0]
}

func adaptDecl(t *testing.T, opts *Options, decl string) *AdaptedFunction {
	t.Helper()
	af, err := Adapt(parseFn(t, decl), opts)
	require.NoError(t, err)
	return af
}

func TestHandleReturnBecomesSharedPtr(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(), "N_Vector N_VClone(N_Vector w);")

	require.Equal(t, "std::shared_ptr<std::remove_pointer_t<N_Vector>>", af.ReturnType)

	ret := af.ReturnStatement()
	require.Equal(t, 1, strings.Count(ret, "our_make_shared"), "deleter ctor must be invoked exactly once")
	require.Contains(t, ret, "N_VectorDeleter")
	require.Contains(t, ret, "(lambda_result)")

	// The parameter keeps the original handle type.
	require.Len(t, af.Params, 1)
	require.Equal(t, "N_Vector", af.Params[0].TypeText())

	// No context parameter, no keep-alive.
	require.Empty(t, af.Annotations)
}

func TestHandleReturnSkipsRawReferencePolicy(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(),
		"N_Vector N_VGetLocalVector(N_Vector v); // nb::rv_policy::reference")

	require.Equal(t, "N_Vector", af.ReturnType)
	require.NotContains(t, af.ReturnStatement(), "our_make_shared")
}

func TestKeepAliveIndexFollowsContextPosition(t *testing.T) {
	tests := []struct {
		name string
		decl string
		want string
	}{
		{
			name: "context first of two",
			decl: "N_Vector N_VNew_Serial(SUNContext sunctx, sunindextype length);",
			want: "nb::keep_alive<0, 1>()",
		},
		{
			name: "context second of two",
			decl: "N_Vector N_VMake_Serial(sunindextype length, SUNContext sunctx);",
			want: "nb::keep_alive<0, 2>()",
		},
		{
			name: "context third of three",
			decl: "N_Vector N_VNewManaged(sunindextype local, sunindextype global, SUNContext sunctx);",
			want: "nb::keep_alive<0, 3>()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			af := adaptDecl(t, DefaultOptions(), tt.decl)
			require.Equal(t, []string{tt.want}, af.Annotations)
		})
	}
}

func TestOutputPointerBecomesTupleReturn(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(), "int CVodeGetNumSteps(void* cvode_mem, long* nsteps);")

	require.Equal(t, "std::tuple<int, long>", af.ReturnType)
	require.Len(t, af.Params, 1)
	require.Equal(t, "void*", af.Params[0].TypeText())
	require.Equal(t, []string{"cvode_mem", "&nsteps"}, af.CallArgs)
	require.Contains(t, af.InputCode, "long nsteps = long();")
	require.Equal(t, "return std::make_tuple(lambda_result, nsteps);", af.ReturnStatement())
}

func TestSingleOutputVoidReturn(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(), "void SUNGetTolerance(double* tol);")

	require.Equal(t, "double", af.ReturnType)
	require.Empty(t, af.Params)
	require.Equal(t, "return tol;", af.ReturnStatement())
}

func TestTupleReturnWrapsOnlyHandleSlots(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(), "N_Vector SUNStepperGetVec(void* mem, long* nst);")

	require.Equal(t,
		"std::tuple<std::shared_ptr<std::remove_pointer_t<N_Vector>>, long>",
		af.ReturnType)

	ret := af.ReturnStatement()
	require.Equal(t, 1, strings.Count(ret, "our_make_shared"))
	// Slot order preserved: wrapped handle first, raw value second.
	require.Equal(t,
		"return std::make_tuple(our_make_shared<std::remove_pointer_t<N_Vector>, N_VectorDeleter>(lambda_result), nst);",
		ret)
}

func TestTupleContextAttachesCallPolicy(t *testing.T) {
	t.Run("single handle slot", func(t *testing.T) {
		af := adaptDecl(t, DefaultOptions(), "N_Vector SUNGetVec(SUNContext sunctx, long* nst);")
		require.Equal(t,
			[]string{"nb::call_policy<sundials4py::returns_references_to<1, 0>>()"},
			af.Annotations)
	})

	t.Run("every handle slot is a nurse", func(t *testing.T) {
		af := adaptDecl(t, DefaultOptions(), "N_Vector SUNCloneBoth(SUNContext sunctx, N_Vector* other);")
		require.Equal(t,
			[]string{"nb::call_policy<sundials4py::returns_references_to<1, 0, 1>>()"},
			af.Annotations)
		require.Equal(t, 2, strings.Count(af.ReturnStatement(), "our_make_shared"))
	})
}

func TestNestedTupleSlotIsFatal(t *testing.T) {
	af := newAdaptedFunction(parseFn(t, "int SUNWeird(int a);"), DefaultOptions())
	af.ReturnType = "std::tuple<std::vector<int>, N_Vector>"
	af.ReturnParts = []string{"lambda_result", "v"}

	_, err := AdaptHandleReturnsToSharedPtr(af)
	require.ErrorIs(t, err, ErrUnsupportedReturnShape)
	require.Contains(t, err.Error(), "not yet supported")
}

func TestArrayPointerPairBecomesVector(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(),
		"int N_VLinearCombination(int nvec, sunrealtype* c, N_Vector* X, N_Vector z);")

	require.Len(t, af.Params, 3)
	require.Equal(t, "std::vector<sunrealtype>& c", af.Params[0].TypeText()+" "+af.Params[0].Name)
	require.Equal(t, "std::vector<N_Vector>& X", af.Params[1].TypeText()+" "+af.Params[1].Name)
	require.Equal(t, "N_Vector", af.Params[2].TypeText())

	require.Equal(t,
		[]string{"static_cast<int>(c.size())", "c.data()", "X.data()", "z"},
		af.CallArgs)

	// The pointer+length pair must never be mistaken for output params.
	require.Equal(t, "int", af.ReturnType)
}

func TestAdapterOrderIsRecorded(t *testing.T) {
	af := adaptDecl(t, DefaultOptions(), "N_Vector SUNStepperGetVec(void* mem, long* nst);")
	require.Equal(t, []string{
		"SUNStepperGetVec_adapt_modifiable_immutable_to_return",
		"SUNStepperGetVec_adapt_return_type_to_shared_ptr",
	}, af.Applied)
}

func TestMalformedOutputPatternFails(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputParamRegex = "["
	_, err := Adapt(parseFn(t, "int CVodeGetNumSteps(void* cvode_mem, long* nsteps);"), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "output parameter")
}

func TestNullableDefaults(t *testing.T) {
	t.Run("const char pointer", func(t *testing.T) {
		af := adaptDecl(t, DefaultOptions(),
			"int SUNLogger_SetErrorFilename(SUNLogger logger, const char* error_filename);")
		require.Equal(t, "nullptr", af.Params[1].Default)
		require.Empty(t, af.Params[0].Default)
	})

	t.Run("declared null default", func(t *testing.T) {
		af := adaptDecl(t, DefaultOptions(), "int SUNSetBuffer(double* buf = NULL);")
		require.Equal(t, "nullptr", af.Params[0].Default)
	})

	t.Run("configured handle parameter", func(t *testing.T) {
		opts := DefaultOptions()
		opts.NullableParams = []string{"N_VCloneEmpty.tmpl"}
		af := adaptDecl(t, opts, "int N_VCloneEmpty(N_Vector tmpl);")
		require.Equal(t, "nullptr", af.Params[0].Default)
	})

	t.Run("unrelated pointer untouched", func(t *testing.T) {
		opts := DefaultOptions()
		opts.OutputParamRegex = "^$" // keep the pointer a parameter
		af := adaptDecl(t, opts, "int SUNFill(double* values);")
		require.Empty(t, af.Params[0].Default)
	})
}
