package frontend

import (
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// cKeywordTypes maps C type-keyword sequences to the builtin catalog.
// Keys are the space-joined tokens with "*" attached to the preceding word.
var cKeywordTypes = map[string]string{
	"char":               "int8",
	"signed char":        "int8",
	"unsigned char":      "uint8",
	"short":              "int16",
	"short int":          "int16",
	"unsigned short":     "uint16",
	"unsigned short int": "uint16",
	"int":                "int",
	"signed":             "int",
	"signed int":         "int",
	"unsigned":           "uint32",
	"unsigned int":       "uint32",
	"long":               "int64",
	"long int":           "int64",
	"long long":          "int64",
	"long long int":      "int64",
	"unsigned long":      "uint64",
	"unsigned long int":  "uint64",
	"unsigned long long": "uint64",
	"float":              "float",
	"double":             "double",
	"char*":              "str",
	"const char*":        "str",
}

// ClassifyTypeAlias maps the body of a type-alias macro to a builtin. It
// reports false for sequences outside the catalog, such as "long double".
func ClassifyTypeAlias(body []string) (ir.Type, bool) {
	key := strings.Join(body, " ")
	key = strings.ReplaceAll(key, " *", "*")
	name, ok := cKeywordTypes[key]
	if !ok {
		return nil, false
	}
	return ir.Builtin{Name: name}, true
}

// resolveMacro completes a macro as declared in a unit file. Type-alias
// macros get their type; those the catalog cannot express become
// object-like macros over the same tokens.
func resolveMacro(m ir.Macro) ir.Macro {
	if m.Kind != ir.MacroTypeAlias {
		return m
	}
	if t, ok := ClassifyTypeAlias(m.Body); ok {
		m.Type = t
		return m
	}
	m.Kind = ir.MacroObject
	return m
}
