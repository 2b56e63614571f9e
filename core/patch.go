package core

import "encoding/json"

// PatchField is a tri-state request field: absent, null or a value.
type PatchField[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present PatchField holding v.
func Set[T any](v T) PatchField[T] {
	return PatchField[T]{Present: true, Value: &v}
}

// Clear returns a present PatchField holding null.
func Clear[T any]() PatchField[T] {
	return PatchField[T]{Present: true}
}

func (p *PatchField[T]) UnmarshalJSON(b []byte) error {
	p.Present = true
	if string(b) == "null" {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

func (p PatchField[T]) MarshalJSON() ([]byte, error) {
	if p.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*p.Value)
}

func (p PatchField[T]) Get() (*T, bool) { return p.Value, p.Present }
