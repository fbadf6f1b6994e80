// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package nostr

import "strconv"

// Tag names used by Habitat record schemas. A tag is a string array
// whose first element is the name; the second element, when present, is
// the value. Further elements are positional extras (relay hints,
// markers) that pass through unmodified.
const (
	TagIdentifier  = "d"
	TagTitle       = "title"
	TagDescription = "description"
	TagImage       = "image"
	TagScene       = "scene"
	TagLabel       = "t"
	TagEvent       = "e"
	TagPubkey      = "p"
	TagExpiration  = "expiration"
	TagActivity    = "activity"
)

// Tags is the ordered tag list of an event. Lookup treats the list as
// unordered (first match wins); iteration preserves wire order verbatim,
// which matters for mention lists and custom labels.
type Tags [][]string

// First returns the value of the first tag with the given name. A tag
// with no value element reports ("", false) — a bare name carries no
// information for any Habitat schema.
func (t Tags) First(name string) (string, bool) {
	for _, tag := range t {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// Values returns the values of every tag with the given name, in wire
// order. Tags without a value element are skipped.
func (t Tags) Values(name string) []string {
	var values []string
	for _, tag := range t {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// FirstInt parses the first value of the named tag as a base-10 integer.
// Absence and parse failure are indistinguishable: both report
// (0, false). Garbage on the wire is treated as absence, never as an
// error — any writer can publish any string under any tag name.
func (t Tags) FirstInt(name string) (int64, bool) {
	raw, ok := t.First(name)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// FirstBool parses the first value of the named tag as a boolean
// ("true"/"false", "1"/"0"). Absence and parse failure both report
// (false, false).
func (t Tags) FirstBool(name string) (bool, bool) {
	raw, ok := t.First(name)
	if !ok {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

// Tag builds a single tag from a name and its elements.
func Tag(name string, elements ...string) []string {
	return append([]string{name}, elements...)
}
