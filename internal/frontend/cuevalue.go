package frontend

import (
	"strings"

	"cuelang.org/go/cue"
)

// lookup selects a regular field by its literal label. Labels such as
// "if" are CUE keywords, so paths are built rather than parsed.
func lookup(v cue.Value, key string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(key)))
}

func reqString(v cue.Value, field, key string) (string, error) {
	fv := lookup(v, key)
	if !fv.Exists() {
		return "", errorf(v.Pos(), field+"."+key, "%s is required", key)
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optString(v cue.Value, key string) (string, bool, error) {
	fv := lookup(v, key)
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, key string) (bool, error) {
	fv := lookup(v, key)
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// listOf returns the elements of a list value. A missing value is an
// empty list.
func listOf(v cue.Value, field string) ([]cue.Value, error) {
	if !v.Exists() {
		return nil, nil
	}
	if v.Kind() != cue.ListKind {
		return nil, errorf(v.Pos(), field, "expected a list, got %s", v.Kind())
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	items, err := listOf(v, field)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := item.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// oneOf returns the single key of keys present in v.
func oneOf(v cue.Value, field string, keys []string) (string, error) {
	var found []string
	for _, k := range keys {
		if lookup(v, k).Exists() {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", errorf(v.Pos(), field, "expected one of %s", strings.Join(keys, ", "))
	default:
		return "", errorf(v.Pos(), field, "ambiguous entry: has %s", strings.Join(found, " and "))
	}
}
