package template

import (
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStringify(t *testing.T) {
	day := time.Date(2025, time.January, 6, 15, 0, 0, 0, time.UTC)
	var nilTime *time.Time
	var nilMap map[string]any
	var nilURL *url.URL
	var nilErr *Error

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int32", int32(-7), "-7"},
		{"uint", uint8(200), "200"},
		{"float whole", 3.0, "3"},
		{"float fraction", 1234.5, "1234.5"},
		{"time", day, "2025-01-06"},
		{"time pointer", &day, "2025-01-06"},
		{"nil time pointer", nilTime, ""},
		{"error", errors.New("boom"), "boom"},
		{"duration stringer", 90 * time.Second, "1m30s"},
		{"string slice", []string{"a", "b"}, "a, b"},
		{"mixed slice", []any{1, "x", true}, "1, x, true"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"nil map", nilMap, ""},
		{"nil stringer pointer", nilURL, ""},
		{"nil error pointer", nilErr, ""},
		{"stringer pointer", &url.URL{Scheme: "https", Host: "oak.example"}, "https://oak.example"},
		{"struct", struct {
			Name string `json:"name"`
		}{"Ann"}, `{"name":"Ann"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringify(tt.in))
		})
	}
}

func TestTruthy(t *testing.T) {
	var nilPtr *resident

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "no", true},
		{"zero", 0, false},
		{"zero float", 0.0, false},
		{"NaN", math.NaN(), false},
		{"negative", -1, true},
		{"nil pointer", nilPtr, false},
		{"pointer", &resident{}, true},
		{"empty slice", []any{}, true},
		{"empty map", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truthy(tt.in))
		})
	}
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same strings", "active", "active", true},
		{"different strings", "active", "archived", false},
		{"int and float", 1, 1.0, true},
		{"number and numeric string", 5, "5", true},
		{"numeric string and number", "5.0", 5, true},
		{"number and word", 5, "five", false},
		{"bool and number", true, 1, true},
		{"bool and zero", false, 0, true},
		{"bool and bool", true, true, true},
		{"bool and word", true, "true", false},
		{"nil and nil", nil, nil, true},
		{"nil and empty string", nil, "", false},
		{"int types", int64(3), uint(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looseEqual(tt.a, tt.b))
		})
	}
}

func TestToTime(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.March, 9, 0, 0, 0, 0, london)

	tests := []struct {
		name   string
		in     any
		want   time.Time
		wantOK bool
	}{
		{"date string", "2024-03-09", want, true},
		{"british date string", "09/03/2024", want, true},
		{"padded string", "  2024-03-09 ", want, true},
		{"datetime string", "2024-03-09 00:00:00", want, true},
		{"time value", want, want, true},
		{"time pointer", &want, want, true},
		{"unix seconds", want.Unix(), want, true},
		{"word", "tomorrow", time.Time{}, false},
		{"bool", true, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toTime(tt.in, london)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}
