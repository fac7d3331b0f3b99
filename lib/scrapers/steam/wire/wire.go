// Package wire holds decoding helpers for the Steam community wire
// format, which has no formal contract: numbers arrive quoted or bare,
// booleans arrive as true, "true" or 1, and some fields change shape
// between apps.
package wire

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Truthy reports whether a field carried an explicit truthy success
// indicator. Any shape it cannot make sense of decodes to false
// rather than failing, since a malformed success field means the
// operation did not succeed, not that the session is broken.
type Truthy bool

func (t *Truthy) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true", `"true"`, "1", `"1"`:
		*t = true
	default:
		*t = false
	}
	return nil
}

func (t Truthy) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(t))
}

// Uint64 decodes a JSON number that may or may not be quoted.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(n)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(u))
}

// Int decodes a JSON integer that may or may not be quoted.
type Int int

func (i *Int) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*i = Int(n)
	return nil
}

func (i Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(i))
}

// LooseStrings is a field that is a list of strings for some apps and
// an arbitrary JSON value for others (appid 816's tag_ids being the
// known offender). Call sites must check which arm is populated
// instead of assuming one shape.
type LooseStrings struct {
	List []string
	Raw  json.RawMessage
}

func (l *LooseStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		l.List = list
		l.Raw = nil
		return nil
	}
	l.List = nil
	l.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (l LooseStrings) MarshalJSON() ([]byte, error) {
	if l.Raw != nil {
		return l.Raw, nil
	}
	if l.List == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.List)
}
