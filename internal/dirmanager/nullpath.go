package dirmanager

import (
	"bytes"
	"encoding/json"
)

// NullPath is a path that may be absent. A stage that produces no output
// artifact (mesh generation writing into its own directory, for example) is
// recorded as an invalid NullPath and serialised as JSON null, never as an
// empty string.
type NullPath struct {
	Path  string
	Valid bool
}

// PathOf returns a valid NullPath for p.
func PathOf(p string) NullPath {
	return NullPath{Path: p, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (n NullPath) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Path)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullPath) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullPath{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Path); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// String returns the path, or "<none>" when absent.
func (n NullPath) String() string {
	if !n.Valid {
		return "<none>"
	}
	return n.Path
}

// OutputPaths is the manifest of one sweep call: one entry per simulation
// chain, one NullPath per stage.
type OutputPaths [][]NullPath
