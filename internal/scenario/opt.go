package scenario

import "gopkg.in/yaml.v3"

// Opt is an optionally set value. The zero Opt is unset, so "explicitly
// configured to the default" and "not configured" stay distinguishable.
type Opt[T any] struct {
	v   T
	set bool
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{v: v, set: true} }

// IsSet reports whether a value was supplied.
func (o Opt[T]) IsSet() bool { return o.set }

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (T, bool) { return o.v, o.set }

// Or returns the value when set and def otherwise.
func (o Opt[T]) Or(def T) T {
	if o.set {
		return o.v
	}
	return def
}

// over replaces o with src when src is set.
func (o *Opt[T]) over(src Opt[T]) {
	if src.set {
		*o = src
	}
}

// UnmarshalYAML marks the value as set whenever the key is present.
func (o *Opt[T]) UnmarshalYAML(n *yaml.Node) error {
	var v T
	if err := n.Decode(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML writes the value, or null when unset.
func (o Opt[T]) MarshalYAML() (any, error) {
	if !o.set {
		return nil, nil
	}
	return o.v, nil
}
