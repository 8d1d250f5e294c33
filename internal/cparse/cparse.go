// Package cparse extracts a shallow structural model from SUNDIALS-style C
// headers: function declarations, opaque handle typedefs, plain structs,
// enums and object-like macros. It is not a C parser; it matches the
// declaration shapes the SUNDIALS public headers actually use.
package cparse

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is a declared C type: base name plus const/unsigned qualifiers and
// pointer depth.
type Type struct {
	Name     string `xml:"name,attr"`
	Const    bool   `xml:"const,attr,omitempty"`
	Unsigned bool   `xml:"unsigned,attr,omitempty"`
	Pointer  int    `xml:"pointer,attr,omitempty"`
}

func (t Type) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Unsigned {
		b.WriteString("unsigned ")
	}
	b.WriteString(t.Name)
	b.WriteString(strings.Repeat("*", t.Pointer))
	return b.String()
}

// IsVoid reports whether t is plain void (not void*).
func (t Type) IsVoid() bool {
	return t.Name == "void" && t.Pointer == 0
}

// Param is one function parameter, with its declared default when the
// header carries one (C++ headers only).
type Param struct {
	Name    string `xml:"name,attr"`
	Type    Type   `xml:"type"`
	Default string `xml:"default,attr,omitempty"`
}

// Function is a declared function with any adjacent comment text. Doc is
// the comment block immediately preceding the declaration, EOLComment the
// trailing comment on the declaration line; binding annotations such as
// rv_policy directives live in either.
type Function struct {
	Name       string  `xml:"name,attr"`
	ReturnType Type    `xml:"return"`
	Params     []Param `xml:"param"`
	Doc        string  `xml:"doc,omitempty"`
	EOLComment string  `xml:"eol-comment,omitempty"`
}

// Comments returns all comment text attached to the declaration.
func (f *Function) Comments() string {
	if f.Doc == "" {
		return f.EOLComment
	}
	if f.EOLComment == "" {
		return f.Doc
	}
	return f.Doc + "\n" + f.EOLComment
}

type EnumValue struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr,omitempty"`
}

type Enum struct {
	Name   string      `xml:"name,attr"`
	Values []EnumValue `xml:"value"`
}

// Typedef records `typedef struct Tag *Name;` opaque handle declarations,
// the shape SUNDIALS uses for its capability types.
type Typedef struct {
	Name       string `xml:"name,attr"`
	Underlying string `xml:"underlying,attr"`
}

type Struct struct {
	Name   string  `xml:"name,attr"`
	Fields []Param `xml:"field"`
}

type Macro struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Unit is the structural model of one concatenated header source.
type Unit struct {
	Functions []Function `xml:"function"`
	Enums     []Enum     `xml:"enum"`
	Opaques   []Typedef  `xml:"opaque-typedef"`
	Structs   []Struct   `xml:"struct"`
	Macros    []Macro    `xml:"macro"`
}

var (
	blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)

	opaqueRe = regexp.MustCompile(`typedef\s+struct\s+(\w+)\s*\*\s*(\w+)\s*;`)
	structRe = regexp.MustCompile(`typedef\s+struct\s*\w*\s*\{([^{}]*)\}\s*(\w+)\s*;`)
	enumRe   = regexp.MustCompile(`typedef\s+enum\s*\w*\s*\{([^{}]*)\}\s*(\w+)\s*;`)
	macroRe  = regexp.MustCompile(`(?m)^[ \t]*#define[ \t]+(\w+)[ \t]+([^\n]+)$`)
	funcRe   = regexp.MustCompile(`(?m)^[ \t]*((?:const\s+)?(?:unsigned\s+)?(?:struct\s+)?\w+[\s*]+)(\w+)\s*\(([^()]*)\)\s*;`)

	declKeywords = map[string]bool{"typedef": true, "return": true, "static": true, "inline": true, "extern": true}
)

// Parse builds the structural model for source. Function-adjacent comments
// are taken from the original text; all other extraction runs on a copy
// with comments blanked out so that commented-out declarations never match.
func Parse(source string) (*Unit, error) {
	source = strings.ReplaceAll(strings.ReplaceAll(source, "\r\n", "\n"), "\r", "\n")
	stripped := blankComments(source)

	unit := &Unit{}
	parseOpaques(stripped, unit)
	parseStructs(stripped, unit)
	parseEnums(stripped, unit)
	parseMacros(stripped, unit)
	if err := parseFunctions(source, stripped, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// blankComments replaces every comment with spaces of the same length so
// byte offsets stay aligned with the original text.
func blankComments(s string) string {
	blank := func(m string) string {
		b := []byte(m)
		for i, c := range b {
			if c != '\n' {
				b[i] = ' '
			}
		}
		return string(b)
	}
	s = blockCommentRe.ReplaceAllStringFunc(s, blank)
	return lineCommentRe.ReplaceAllStringFunc(s, blank)
}

func parseOpaques(src string, unit *Unit) {
	for _, m := range opaqueRe.FindAllStringSubmatch(src, -1) {
		unit.Opaques = append(unit.Opaques, Typedef{
			Name:       m[2],
			Underlying: "struct " + m[1],
		})
	}
}

func parseStructs(src string, unit *Unit) {
	for _, m := range structRe.FindAllStringSubmatch(src, -1) {
		s := Struct{Name: m[2]}
		for _, line := range strings.Split(m[1], ";") {
			line = strings.TrimSpace(line)
			// Function-pointer members ("ops" tables) are never bound.
			if line == "" || strings.Contains(line, "(") {
				continue
			}
			typ, name, _ := splitDecl(line)
			if name == "" {
				continue
			}
			s.Fields = append(s.Fields, Param{Name: name, Type: typ})
		}
		unit.Structs = append(unit.Structs, s)
	}
}

func parseEnums(src string, unit *Unit) {
	for _, m := range enumRe.FindAllStringSubmatch(src, -1) {
		e := Enum{Name: m[2]}
		for _, entry := range strings.Split(m[1], ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			name, value := entry, ""
			if eq := strings.Index(entry, "="); eq >= 0 {
				name = strings.TrimSpace(entry[:eq])
				value = strings.TrimSpace(entry[eq+1:])
			}
			e.Values = append(e.Values, EnumValue{Name: name, Value: value})
		}
		unit.Enums = append(unit.Enums, e)
	}
}

func parseMacros(src string, unit *Unit) {
	for _, m := range macroRe.FindAllStringSubmatch(src, -1) {
		value := strings.TrimSpace(m[2])
		if value == "" || value == "\\" {
			continue
		}
		unit.Macros = append(unit.Macros, Macro{Name: m[1], Value: value})
	}
}

func parseFunctions(source, stripped string, unit *Unit) error {
	for _, idx := range funcRe.FindAllStringSubmatchIndex(stripped, -1) {
		retText := strings.TrimSpace(stripped[idx[2]:idx[3]])
		name := stripped[idx[4]:idx[5]]
		paramText := stripped[idx[6]:idx[7]]

		if declKeywords[strings.Fields(retText)[0]] {
			continue
		}

		fn := Function{Name: name, ReturnType: ParseType(retText)}
		params, err := parseParams(paramText)
		if err != nil {
			return fmt.Errorf("function %s: %w", name, err)
		}
		fn.Params = params
		fn.Doc = precedingComment(source, idx[0])
		fn.EOLComment = trailingComment(source, idx[1])
		unit.Functions = append(unit.Functions, fn)
	}
	return nil
}

func parseParams(text string) ([]Param, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "void" {
		return nil, nil
	}
	var params []Param
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "..." {
			continue
		}
		typ, name, def := splitDecl(part)
		if name == "" {
			return nil, fmt.Errorf("unnamed parameter %q", part)
		}
		params = append(params, Param{Name: name, Type: typ, Default: def})
	}
	return params, nil
}

// splitDecl splits "const char* name = NULL" into type, name and default.
func splitDecl(decl string) (Type, string, string) {
	def := ""
	if eq := strings.Index(decl, "="); eq >= 0 {
		def = strings.TrimSpace(decl[eq+1:])
		decl = strings.TrimSpace(decl[:eq])
	}

	// Array suffix is pointer syntax in a parameter position.
	arrays := 0
	for strings.HasSuffix(decl, "[]") {
		decl = strings.TrimSpace(strings.TrimSuffix(decl, "[]"))
		arrays++
	}

	fields := strings.Fields(decl)
	if len(fields) < 2 {
		return Type{}, "", ""
	}
	name := fields[len(fields)-1]
	typeText := strings.Join(fields[:len(fields)-1], " ")
	for strings.HasPrefix(name, "*") {
		name = name[1:]
		typeText += "*"
	}
	typ := ParseType(typeText)
	typ.Pointer += arrays
	return typ, name, def
}

// ParseType parses a C type expression such as "const char*" or
// "struct _SUNContext **".
func ParseType(text string) Type {
	t := Type{}
	text = strings.TrimSpace(text)
	t.Pointer = strings.Count(text, "*")
	text = strings.ReplaceAll(text, "*", " ")
	for _, f := range strings.Fields(text) {
		switch f {
		case "const":
			t.Const = true
		case "unsigned":
			t.Unsigned = true
		case "struct":
			// keep the tag as the base name
		default:
			t.Name = f
		}
	}
	return t
}

// precedingComment returns the comment block that ends on the line directly
// above offset, with comment markers removed. A blank line between comment
// and declaration detaches the comment.
func precedingComment(source string, offset int) string {
	head := strings.TrimRight(source[:offset], " \t")
	if !strings.HasSuffix(head, "\n") {
		return ""
	}
	head = strings.TrimRight(strings.TrimSuffix(head, "\n"), " \t")
	if strings.HasSuffix(head, "*/") {
		if start := strings.LastIndex(head, "/*"); start >= 0 {
			return cleanComment(head[start:])
		}
		return ""
	}
	// Collect contiguous // lines above the declaration.
	lines := strings.Split(head, "\n")
	var collected []string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "//") {
			break
		}
		collected = append([]string{strings.TrimSpace(strings.TrimPrefix(line, "//"))}, collected...)
	}
	return strings.Join(collected, "\n")
}

// trailingComment returns the comment on the rest of the declaration line.
func trailingComment(source string, offset int) string {
	rest := source[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "//") {
		return strings.TrimSpace(strings.TrimPrefix(rest, "//"))
	}
	if strings.HasPrefix(rest, "/*") {
		return cleanComment(rest)
	}
	return ""
}

func cleanComment(c string) string {
	c = strings.TrimPrefix(c, "/*")
	c = strings.TrimSuffix(c, "*/")
	var lines []string
	for _, line := range strings.Split(c, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
