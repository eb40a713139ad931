package template

import (
	"time"
	// Default timezone must load on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Context is the caller-supplied data for one render.
// The engine only reads it; loops extend a derived Scope instead.
type Context struct {
	// Organization is the care home or provider the document is for.
	Organization any `json:"organization,omitempty" yaml:"organization,omitempty"`

	// User is the person generating or named in the document.
	User any `json:"user,omitempty" yaml:"user,omitempty"`

	// Record is an arbitrary domain object (resident, staff member, policy).
	Record any `json:"record,omitempty" yaml:"record,omitempty"`

	// Variables are free-form values, resolvable at the top level.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Now pins the render clock. Zero means the engine clock.
	Now time.Time `json:"now,omitempty" yaml:"now,omitempty"`
}

// SystemValues are injected by the engine and recomputed on every render.
type SystemValues struct {
	CurrentDate time.Time
	Timezone    string
	Locale      string
	RenderID    string
}

func (s SystemValues) values() map[string]any {
	return map[string]any{
		"currentDate":  s.CurrentDate,
		"currentYear":  s.CurrentDate.Year(),
		"currentMonth": int(s.CurrentDate.Month()),
		"currentDay":   s.CurrentDate.Day(),
		"currentTime":  s.CurrentDate.Format("15:04"),
		"timezone":     s.Timezone,
		"locale":       s.Locale,
		"renderId":     s.RenderID,
	}
}

// Scope is the read-only namespace a render resolves paths against.
// Function handlers receive the scope of the call site.
type Scope struct {
	parent *Scope
	locals map[string]any

	data   *Context
	system SystemValues
	sysMap map[string]any
	lang   language.Tag
}

// buildScope merges caller data with fresh system values.
func buildScope(data *Context, opts *Options, clock func() time.Time) *Scope {
	if data == nil {
		data = &Context{}
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := data.Now
	if now.IsZero() {
		now = clock()
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		tag = language.BritishEnglish
	}

	sys := SystemValues{
		CurrentDate: now.In(loc),
		Timezone:    loc.String(),
		Locale:      tag.String(),
		RenderID:    uuid.NewString(),
	}
	return &Scope{
		data:   data,
		system: sys,
		sysMap: sys.values(),
		lang:   tag,
	}
}

// child derives a scope with extra locals. The receiver is not modified.
func (s *Scope) child(locals map[string]any) *Scope {
	c := *s
	c.parent = s
	c.locals = locals
	return &c
}

// System returns the engine-injected values of this render.
func (s *Scope) System() SystemValues {
	return s.system
}

// Language returns the render locale.
func (s *Scope) Language() language.Tag {
	return s.lang
}

// lookupRoot resolves the first segment of a path.
// Order: loop locals (innermost first), the variables/system namespaces,
// domain slots, variables, system values.
func (s *Scope) lookupRoot(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.locals[name]; ok {
			return v, true
		}
	}

	switch name {
	case "variables":
		return s.data.Variables, s.data.Variables != nil
	case "system":
		return s.sysMap, true
	case "organization":
		if s.data.Organization != nil {
			return s.data.Organization, true
		}
	case "user":
		if s.data.User != nil {
			return s.data.User, true
		}
	case "record":
		if s.data.Record != nil {
			return s.data.Record, true
		}
	}

	if v, ok := s.data.Variables[name]; ok {
		return v, true
	}
	if v, ok := s.sysMap[name]; ok {
		return v, true
	}
	return nil, false
}
