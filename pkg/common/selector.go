package common

// Selector addresses either a single name or a column of names. It is
// resolved once where it enters an API, never probed at call sites.
type Selector struct {
	values []string
	column bool
}

// Scalar selects exactly one name.
func Scalar(v string) Selector {
	return Selector{values: []string{v}}
}

// Column selects every listed name, in order.
func Column(vs ...string) Selector {
	return Selector{values: append([]string(nil), vs...), column: true}
}

func (s Selector) IsColumn() bool { return s.column }

// IsZero reports whether the selector selects nothing.
func (s Selector) IsZero() bool { return len(s.values) == 0 }

// Values returns the selected names.
func (s Selector) Values() []string {
	return append([]string(nil), s.values...)
}
