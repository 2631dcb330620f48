package types

// Opt is an optional string field. The zero value is "not set", which is
// different from a field that was observed with an empty value.
type Opt struct {
	value string
	set   bool
}

// Some returns a set Opt holding v
func Some(v string) Opt {
	return Opt{value: v, set: true}
}

// None returns an unset Opt
func None() Opt {
	return Opt{}
}

// OptOf returns Some(v) for a non-empty v and None otherwise
func OptOf(v string) Opt {
	if v == "" {
		return None()
	}
	return Some(v)
}

// Get returns the value and whether it was set
func (o Opt) Get() (string, bool) {
	return o.value, o.set
}

// IsSet reports whether a value was assigned, even an empty one
func (o Opt) IsSet() bool {
	return o.set
}

// Present reports whether the field carries observed data
func (o Opt) Present() bool {
	return o.set && o.value != ""
}

// String returns the value, or "" when unset
func (o Opt) String() string {
	return o.value
}

// Or returns o when it carries data, otherwise alt
func (o Opt) Or(alt Opt) Opt {
	if o.Present() {
		return o
	}
	return alt
}
