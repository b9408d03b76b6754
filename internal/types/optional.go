package types

import (
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Optional is an optional.Option that also decodes from YAML: an absent key
// stays None, a present value becomes Some. JSON behavior is the embedded
// Option's.
type Optional[T any] struct {
	optional.Option[T]
}

// SomeOf wraps a present value.
func SomeOf[T any](v T) Optional[T] {
	return Optional[T]{Option: optional.Some(v)}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Optional[T]) UnmarshalYAML(value *yaml.Node) error {
	var v T
	if err := value.Decode(&v); err != nil {
		return err
	}

	o.Option = optional.Some(v)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o Optional[T]) MarshalYAML() (any, error) {
	if o.IsNone() {
		return nil, nil
	}

	return o.Unwrap(), nil
}
