package template

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// dateLayout is how bare time values render when substituted.
const dateLayout = "2006-01-02"

// stringify converts a resolved value to its substituted text.
func stringify(v any) string {
	if isNil(v) {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case time.Time:
		return t.Format(dateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(dateLayout)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return stringify(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if items, ok := sequence(v); ok {
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = stringify(item)
			}
			return strings.Join(parts, ", ")
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// isNil reports whether v is nil or a typed nil, whose methods may
// dereference the receiver.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy treats nil, false, zero, NaN and "" as false; everything else,
// including empty collections, is true.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := number(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return false
	}
	return true
}

// number returns v as a float64 when v has a numeric Go type.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// looseEqual compares with type coercion: booleans and numeric strings
// compare as numbers against numbers, everything else compares as text.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		if _, isBool := b.(bool); !isBool {
			a = boolNumber(ab)
		}
	}
	if bb, ok := b.(bool); ok {
		if _, isBool := a.(bool); !isBool {
			b = boolNumber(bb)
		}
	}

	af, aNum := number(a)
	bf, bNum := number(b)
	switch {
	case aNum && bNum:
		return af == bf
	case aNum:
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(b)), 64)
		return err == nil && f == af
	case bNum:
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(a)), 64)
		return err == nil && f == bf
	}
	return stringify(a) == stringify(b)
}

func boolNumber(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toTime interprets dates passed to date functions.
func toTime(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", dateLayout, "02/01/2006"} {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	}
	if f, ok := number(v); ok {
		return time.Unix(int64(f), 0).In(loc), true
	}
	return time.Time{}, false
}
