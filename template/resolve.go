package template

import (
	"reflect"
	"strconv"
	"strings"
)

// Resolve walks a dotted path against the scope.
// It returns ok == false when any segment is missing or an intermediate
// value is nil. The terminal value keeps its original type.
func (s *Scope) Resolve(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, false
		}
	}

	v, ok := s.lookupRoot(segments[0])
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		if v, ok = member(v, seg); !ok {
			return nil, false
		}
	}
	return v, true
}

// member returns the named field, key, or index of v.
func member(v any, name string) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		if val, ok := t[name]; ok {
			return val, true
		}
		if name == "length" {
			return len(t), true
		}
		return nil, false
	case []any:
		return index(len(t), name, func(i int) any { return t[i] })
	case string:
		if name == "length" {
			return len([]rune(t)), true
		}
		return nil, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		key := reflect.ValueOf(name).Convert(rv.Type().Key())
		if val := rv.MapIndex(key); val.IsValid() {
			return val.Interface(), true
		}
		if name == "length" {
			return rv.Len(), true
		}
		return nil, false
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), name, func(i int) any { return rv.Index(i).Interface() })
	case reflect.Struct:
		return structField(rv, name)
	}
	return nil, false
}

// index resolves a numeric segment or "length" on a sequence.
func index(n int, name string, at func(int) any) (any, bool) {
	if name == "length" {
		return n, true
	}
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= n {
		return nil, false
	}
	return at(i), true
}

// structField matches an exported field by name, json tag, or
// case-insensitive name, in that order.
func structField(rv reflect.Value, name string) (any, bool) {
	rt := rv.Type()
	if f, ok := rt.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index).Interface(), true
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return rv.Field(i).Interface(), true
		}
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// sequence converts v to a slice of elements, or ok == false when v is
// not an ordered sequence.
func sequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
