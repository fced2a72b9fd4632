package types

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an absent JSON field from an explicit null. Set is
// true when the field appeared in the payload at all; Valid is true when it
// carried a non-null value.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: value}
}

// NullOptional is an explicit null: present in the payload, no value.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
