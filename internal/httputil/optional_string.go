package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value of a JSON string field:
//   - Present=false: field absent (leave unchanged)
//   - Present=true, Value=nil: field is JSON null (clear)
//   - Present=true, Value!=nil: field has a value
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only called when the field is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Cleared reports whether the field was explicitly set to null.
func (o OptionalString) Cleared() bool {
	return o.Present && o.Value == nil
}
