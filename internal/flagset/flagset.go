// Package flagset models a universe configuration as a set of named flags.
// A flag file is a JSON object keyed by flag name, each entry holding an
// optional description and a value.
package flagset

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// MalformedConfigError reports a document that does not conform to the flag
// file format. Flag names the offending entry; it is empty for document-level
// problems.
type MalformedConfigError struct {
	Flag   string
	Reason string
}

func (e *MalformedConfigError) Error() string {
	if e.Flag == "" {
		return fmt.Sprintf("malformed config: %s", e.Reason)
	}
	return fmt.Sprintf("malformed config: flag %q: %s", e.Flag, e.Reason)
}

// Flag is a single named configuration entry. A nil Description means the
// flag has no description, which is distinct from an empty one.
type Flag struct {
	Description *string `json:"description,omitempty"`
	Value       Value   `json:"value"`
}

// Equal reports whether both description and value match.
func (f Flag) Equal(o Flag) bool {
	if (f.Description == nil) != (o.Description == nil) {
		return false
	}
	if f.Description != nil && *f.Description != *o.Description {
		return false
	}
	return f.Value.Equal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler. A flag body must be an object
// with a value field; unknown fields are ignored.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description *string          `json:"description"`
		Value       *json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Value == nil {
		return errors.New("missing value field")
	}
	var v Value
	if err := v.UnmarshalJSON(*raw.Value); err != nil {
		return err
	}
	f.Description = raw.Description
	f.Value = v
	return nil
}

// Set is a collection of flags keyed by name.
type Set map[string]Flag

// Parse decodes a flag file. The document must be a JSON object of flag
// objects; anything else returns a *MalformedConfigError naming the
// offending flag where one can be identified.
func Parse(data []byte) (Set, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedConfigError{Reason: err.Error()}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(Set, len(raw))
	for _, name := range names {
		var f Flag
		if err := json.Unmarshal(raw[name], &f); err != nil {
			return nil, &MalformedConfigError{Flag: name, Reason: err.Error()}
		}
		set[name] = f
	}
	return set, nil
}

// Marshal renders the set as an indented JSON document with a trailing
// newline. Output is deterministic: keys serialize in sorted order, so equal
// sets produce identical bytes.
func (s Set) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return append(data, '\n'), nil
}

// Get looks up a flag by name.
func (s Set) Get(name string) (Flag, bool) {
	f, ok := s[name]
	return f, ok
}

// Names returns all flag names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two sets hold the same flags.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for name, f := range s {
		of, ok := o[name]
		if !ok || !f.Equal(of) {
			return false
		}
	}
	return true
}
