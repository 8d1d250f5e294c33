package bindgen

import "strings"

// StripSundialsExport removes the export annotation token; it carries no
// structural information.
func StripSundialsExport(code string) string {
	return strings.ReplaceAll(code, "SUNDIALS_EXPORT", "")
}

// ChangeLongIntToLong normalizes the two-word spelling so the structural
// parser sees a single-word type.
func ChangeLongIntToLong(code string) string {
	return strings.ReplaceAll(code, "long int", "long")
}

// PreprocessHeader applies both rewrites. Each is idempotent, so applying
// the whole preprocess twice is a no-op.
func PreprocessHeader(code string) string {
	code = StripSundialsExport(code)
	code = ChangeLongIntToLong(code)
	return code
}
