package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/message"
)

// defaultDatePattern is used by formatDate when no pattern is given.
const defaultDatePattern = "DD/MM/YYYY"

// builtins returns the functions every NewRegistry starts with.
func builtins() []Function {
	return []Function{
		{
			Name:        "formatDate",
			Description: "Format a date with YYYY, MM, DD, MMMM, dddd, HH, mm, ss tokens",
			Examples:    []string{`{{formatDate(currentDate, "DD/MM/YYYY")}}`, `{{formatDate(record.reviewDate, "D MMMM YYYY")}}`},
			Handler:     formatDateFunc,
		},
		{
			Name:        "upper",
			Description: "Convert to uppercase",
			Examples:    []string{`{{upper(organization.name)}}`},
			Handler:     stringFunc("upper", strings.ToUpper),
		},
		{
			Name:        "lower",
			Description: "Convert to lowercase",
			Examples:    []string{`{{lower(user.email)}}`},
			Handler:     stringFunc("lower", strings.ToLower),
		},
		{
			Name:        "trim",
			Description: "Remove leading and trailing whitespace",
			Examples:    []string{`{{trim(record.notes)}}`},
			Handler:     stringFunc("trim", strings.TrimSpace),
		},
		{
			Name:        "capitalize",
			Description: "Title-case each word using the render locale",
			Examples:    []string{`{{capitalize(user.name)}}`},
			Handler:     capitalizeFunc,
		},
		{
			Name:        "formatCurrency",
			Description: "Format an amount as money in the render locale (default GBP)",
			Examples:    []string{`{{formatCurrency(record.weeklyFee)}}`, `{{formatCurrency(record.deposit, "EUR")}}`},
			Handler:     formatCurrencyFunc,
		},
		{
			Name:        "calculateAge",
			Description: "Whole years between a birth date and the render date",
			Examples:    []string{`{{calculateAge(record.dateOfBirth)}}`},
			Handler:     calculateAgeFunc,
		},
		{
			Name:        "default",
			Description: "Return the fallback when the value is empty",
			Examples:    []string{`{{default(record.room, "unassigned")}}`},
			Handler:     defaultFunc,
		},
		{
			Name:        "truncate",
			Description: "Cut a string to a maximum length with an ellipsis",
			Examples:    []string{`{{truncate(record.summary, 120)}}`},
			Handler:     truncateFunc,
		},
		{
			Name:        "join",
			Description: "Join list elements with a separator (default \", \")",
			Examples:    []string{`{{join(record.allergies, "; ")}}`},
			Handler:     joinFunc,
		},
		{
			Name:        "json",
			Description: "Render a value as indented JSON",
			Examples:    []string{`{{json(record)}}`},
			Handler:     jsonFunc,
		},
		{
			Name:        "jsonpath",
			Description: "Return the first match of a JSONPath expression",
			Examples:    []string{`{{jsonpath(record, "$.contacts[0].phone")}}`},
			Handler:     jsonpathFunc,
		},
	}
}

func stringFunc(name string, fn func(string) string) Handler {
	return func(args []any, _ *Scope) (any, error) {
		if len(args) < 1 {
			return nil, argError(name, "expected 1 argument")
		}
		return fn(stringify(args[0])), nil
	}
}

func formatDateFunc(args []any, scope *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("formatDate", "expected a date")
	}
	if args[0] == nil {
		return "", nil
	}
	loc := scope.System().CurrentDate.Location()
	t, ok := toTime(args[0], loc)
	if !ok {
		return nil, argError("formatDate", "cannot interpret %q as a date", stringify(args[0]))
	}
	pattern := defaultDatePattern
	if len(args) > 1 && args[1] != nil {
		pattern = stringify(args[1])
	}
	return formatDate(t, pattern), nil
}

// dateTokens are matched longest first at each position of a pattern.
var dateTokens = []string{"YYYY", "MMMM", "dddd", "MMM", "ddd", "YY", "MM", "DD", "HH", "mm", "ss", "M", "D"}

// formatDate substitutes day, month, year and time tokens in pattern.
func formatDate(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok) {
				b.WriteString(dateToken(t, tok))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

func dateToken(t time.Time, tok string) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return strconv.Itoa(t.Day())
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	}
	return tok
}

func capitalizeFunc(args []any, scope *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("capitalize", "expected 1 argument")
	}
	return cases.Title(scope.Language()).String(stringify(args[0])), nil
}

func formatCurrencyFunc(args []any, scope *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("formatCurrency", "expected an amount")
	}
	amount, ok := number(args[0])
	if !ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(args[0])), 64)
		if err != nil {
			return nil, argError("formatCurrency", "%q is not a number", stringify(args[0]))
		}
		amount = f
	}
	code := "GBP"
	if len(args) > 1 && args[1] != nil {
		code = strings.ToUpper(stringify(args[1]))
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, argError("formatCurrency", "unknown currency %q", code)
	}
	p := message.NewPrinter(scope.Language())
	return p.Sprintf("%v", currency.Symbol(unit.Amount(amount))), nil
}

func calculateAgeFunc(args []any, scope *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("calculateAge", "expected a birth date")
	}
	now := scope.System().CurrentDate
	born, ok := toTime(args[0], now.Location())
	if !ok {
		return nil, argError("calculateAge", "cannot interpret %q as a date", stringify(args[0]))
	}
	return age(born, now), nil
}

// age returns completed years from born to now.
func age(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func defaultFunc(args []any, _ *Scope) (any, error) {
	if len(args) < 2 {
		return nil, argError("default", "expected value and fallback")
	}
	return defaultValue(args[0], args[1]), nil
}

// defaultValue returns the default if the value is nil or an empty string.
// For other types (including zero values like 0), the original value is returned.
func defaultValue(val, defaultVal any) any {
	if val == nil {
		return defaultVal
	}
	if s, ok := val.(string); ok && s == "" {
		return defaultVal
	}
	return val
}

func truncateFunc(args []any, _ *Scope) (any, error) {
	if len(args) < 2 {
		return nil, argError("truncate", "expected string and length")
	}
	n, ok := number(args[1])
	if !ok {
		return nil, argError("truncate", "length must be a number")
	}
	return truncate(stringify(args[0]), int(n)), nil
}

// truncate cuts a string to the specified maximum length in runes.
// If the string is longer than maxLen, it is truncated and "..." is appended.
// For maxLen <= 3, no ellipsis is added (the string is simply cut).
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 0 {
		maxLen = 0
	}
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func joinFunc(args []any, _ *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("join", "expected a list")
	}
	items, ok := sequence(args[0])
	if !ok {
		return stringify(args[0]), nil
	}
	sep := ", "
	if len(args) > 1 && args[1] != nil {
		sep = stringify(args[1])
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = stringify(item)
	}
	return strings.Join(parts, sep), nil
}

func jsonFunc(args []any, _ *Scope) (any, error) {
	if len(args) < 1 {
		return nil, argError("json", "expected 1 argument")
	}
	return toJSON(args[0]), nil
}

// toJSON converts a value to a pretty-printed JSON string.
// If marshaling fails, returns the value's default string representation.
func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func jsonpathFunc(args []any, _ *Scope) (any, error) {
	if len(args) < 2 {
		return nil, argError("jsonpath", "expected value and expression")
	}
	expr, err := jp.ParseString(stringify(args[1]))
	if err != nil {
		return nil, argError("jsonpath", "parse %q: %v", stringify(args[1]), err)
	}
	results := expr.Get(args[0])
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
