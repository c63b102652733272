package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Identified is implemented by entities that can be referenced by id.
type Identified interface {
	RefID() string
}

// Ref is a foreign key that is either an unresolved id or the resolved
// record. It always serializes as the plain id.
type Ref[T Identified] struct {
	id    string
	value *T
}

// Unresolved returns a Ref holding only id.
func Unresolved[T Identified](id string) Ref[T] {
	return Ref[T]{id: id}
}

// Resolved returns a Ref holding v.
func Resolved[T Identified](v T) Ref[T] {
	return Ref[T]{id: v.RefID(), value: &v}
}

// ID returns the referenced id regardless of variant.
func (r Ref[T]) ID() string { return r.id }

// Get returns the resolved record, if any.
func (r Ref[T]) Get() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// IsResolved reports whether the record has been populated.
func (r Ref[T]) IsResolved() bool { return r.value != nil }

// Resolve returns a copy of r populated with v when the ids match.
func (r Ref[T]) Resolve(v T) Ref[T] {
	if v.RefID() != r.id {
		return r
	}
	return Ref[T]{id: r.id, value: &v}
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts either a plain id or an object carrying "id".
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = Ref[T]{id: obj.ID}
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*r = Ref[T]{id: id}
	return nil
}

// Scan implements sql.Scanner so refs can be read straight from id columns.
func (r *Ref[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Ref[T]{}
	case string:
		*r = Ref[T]{id: v}
	case []byte:
		*r = Ref[T]{id: string(v)}
	default:
		return fmt.Errorf("ref: cannot scan %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (r Ref[T]) Value() (driver.Value, error) {
	if r.id == "" {
		return nil, nil
	}
	return r.id, nil
}
