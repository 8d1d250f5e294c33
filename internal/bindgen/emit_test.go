package bindgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCloneBinding(t *testing.T) {
	source := `
typedef struct _generic_N_Vector *N_Vector;
SUNDIALS_EXPORT N_Vector N_VClone(N_Vector w);
`
	result, err := Generate(DefaultOptions(), "nvector", source)
	require.NoError(t, err)

	require.Contains(t, result.GlueCode, "DO NOT EDIT")
	require.Contains(t, result.GlueCode, "#include <nanobind/nanobind.h>")

	pydef := result.PydefCode
	require.Contains(t, pydef, "void init_nvector(nb::module_& m)")
	require.Contains(t, pydef, `nb::class_<std::remove_pointer_t<N_Vector>>(m, "N_Vector");`)
	require.Contains(t, pydef, `m.def("N_VClone",`)
	require.Contains(t, pydef, "[](N_Vector w) -> std::shared_ptr<std::remove_pointer_t<N_Vector>>")
	require.Contains(t, pydef, "auto lambda_result = N_VClone(w);")
	require.Equal(t, 1, strings.Count(pydef, "our_make_shared"),
		"deleter-typed ctor must be invoked exactly once")
	require.Contains(t, pydef, `nb::arg("w")`)
	require.NotContains(t, pydef, "keep_alive",
		"no context parameter means no keep-alive")
}

func TestGenerateRawReferenceUnchanged(t *testing.T) {
	source := `
typedef struct _generic_N_Vector *N_Vector;
N_Vector N_VGetLocal(N_Vector v); // nb::rv_policy::reference
`
	result, err := Generate(DefaultOptions(), "nvector", source)
	require.NoError(t, err)

	require.Contains(t, result.PydefCode, `m.def("N_VGetLocal", N_VGetLocal, nb::arg("v"));`)
	require.NotContains(t, result.PydefCode, "our_make_shared")
}

func TestGenerateEnumAndMacro(t *testing.T) {
	source := `
#define SUN_SUCCESS 0
#define ARK_NORMAL 1

typedef enum {
  SUN_OUTPUTFORMAT_TABLE,
  SUN_OUTPUTFORMAT_CSV
} SUNOutputFormat;
`
	opts := DefaultOptions()
	opts.MacroIncludeRegex = "^SUN_"
	result, err := Generate(opts, "core", source)
	require.NoError(t, err)

	pydef := result.PydefCode
	require.Contains(t, pydef, `nb::enum_<SUNOutputFormat>(m, "SUNOutputFormat")`)
	require.Contains(t, pydef, `.value("SUN_OUTPUTFORMAT_TABLE", SUN_OUTPUTFORMAT_TABLE)`,
		"enum values keep their prefix")
	require.Contains(t, pydef, ".export_values()")
	require.Contains(t, pydef, `m.attr("SUN_SUCCESS") = SUN_SUCCESS;`)
	require.NotContains(t, pydef, "ARK_NORMAL")
}

func TestGenerateExclusions(t *testing.T) {
	source := `
typedef struct _SUNHashMap *SUNHashMap;

typedef enum { DROP_A, DROP_B } SUNInternalFlag;

int SUNHashMap_New(int max_size);
int CVodeInit(void* cvode_mem);
`
	opts := DefaultOptions()
	opts.FnExcludeRegex = "^SUNHashMap_"
	opts.ClassExcludeRegex = "^SUNHashMap$"
	opts.EnumExcludeRegex = "^SUNInternalFlag$"
	result, err := Generate(opts, "core", source)
	require.NoError(t, err)

	pydef := result.PydefCode
	require.NotContains(t, pydef, "SUNHashMap_New")
	require.NotContains(t, pydef, "nb::class_<std::remove_pointer_t<SUNHashMap>>")
	require.NotContains(t, pydef, "SUNInternalFlag")
	require.Contains(t, pydef, `m.def("CVodeInit"`)
}

func TestGenerateDocstring(t *testing.T) {
	source := `
/* Returns the number of steps taken. */
int CVodeGetNumSteps(void* cvode_mem, long int* nsteps);
`
	result, err := Generate(DefaultOptions(), "cvode", source)
	require.NoError(t, err)
	require.Contains(t, result.PydefCode, `"Returns the number of steps taken."`)

	opts := DefaultOptions()
	opts.CommentsExclude = true
	result, err = Generate(opts, "cvode", source)
	require.NoError(t, err)
	require.NotContains(t, result.PydefCode, "Returns the number of steps taken.")
}

func TestGenerateSnakeCaseNames(t *testing.T) {
	opts := DefaultOptions()
	opts.ConvertToSnakeCase = true
	result, err := Generate(opts, "cvode", "int CVodeInit(void* cvode_mem);")
	require.NoError(t, err)
	require.Contains(t, result.PydefCode, `m.def("c_vode_init"`)
}

func TestGenerateMalformedPatternFails(t *testing.T) {
	source := "int CVodeInit(void* cvode_mem);"

	opts := DefaultOptions()
	opts.FnExcludeRegex = "["
	_, err := Generate(opts, "core", source)
	require.Error(t, err, "a broken exclusion must not silently bind everything")
	require.Contains(t, err.Error(), "function exclusion")

	opts = DefaultOptions()
	opts.MacroIncludeRegex = "["
	_, err = Generate(opts, "core", source)
	require.Error(t, err)
	require.Contains(t, err.Error(), "macro include")
}

func TestGenerateNullableArgAnnotation(t *testing.T) {
	source := `
typedef struct _SUNLogger *SUNLogger;
int SUNLogger_SetErrorFilename(SUNLogger logger, const char* error_filename);
`
	result, err := Generate(DefaultOptions(), "core", source)
	require.NoError(t, err)
	require.Contains(t, result.PydefCode, `nb::arg("error_filename") = nb::none()`)
	require.Contains(t, result.PydefCode, "const char* error_filename = nullptr")
}
