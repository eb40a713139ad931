package include

// Map is a fixed, in-memory include source.
type Map map[string]string

// Lookup returns the template registered under name.
func (m Map) Lookup(name string) (string, bool) {
	s, ok := m[name]
	return s, ok
}
