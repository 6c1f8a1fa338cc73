package model

import (
	"bytes"
	"encoding/json"
)

// Label is a tag name from the label catalog.
type Label struct {
	Name string `json:"name"`
}

// UnmarshalJSON accepts a bare string or an object carrying the name under
// "name" or "Name".
func (l *Label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &l.Name)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}

	l.Name = ""
	for _, key := range []string{"name", "Name"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			l.Name = s

			return nil
		}
	}

	return nil
}

// LabelList is the body of GET /articles/labels.
type LabelList struct {
	Labels []Label `json:"labels"`
}
