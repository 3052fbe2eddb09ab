// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package field

import "sort"

// Field is a single named value slot owned by one object.
type Field interface {
	Name() string
	Kind() Kind

	// Set coerces v and stores the result. On error the previous value is kept.
	Set(v any) error

	// Value returns the last coerced value, or nil if the field is unset.
	Value() any

	IsSet() bool
	Reset()

	// Render returns the entries of this field with keys relative to the object.
	Render() []Entry
}

// Descriptor declares a field on a schema. It is immutable and produces a
// fresh Field for every object.
type Descriptor struct {
	name       string
	kind       Kind
	entryKinds map[string]Kind
}

// Generic declares a field that stores values unchanged.
func Generic(name string) Descriptor {
	return Descriptor{name: name, kind: KindGeneric}
}

// Int declares an integer field.
func Int(name string) Descriptor {
	return Descriptor{name: name, kind: KindInt}
}

// Text declares a text field.
func Text(name string) Descriptor {
	return Descriptor{name: name, kind: KindText}
}

// MapOption configures a map field descriptor.
type MapOption func(*Descriptor)

// WithEntryKind coerces the member key of a map field with kind.
func WithEntryKind(key string, kind Kind) MapOption {
	return func(d *Descriptor) {
		d.entryKinds[key] = kind
	}
}

// Map declares a map field whose members are flattened into one key each.
func Map(name string, opts ...MapOption) Descriptor {
	d := Descriptor{name: name, kind: KindMap, entryKinds: make(map[string]Kind)}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d Descriptor) Name() string { return d.name }
func (d Descriptor) Kind() Kind   { return d.kind }

// EntryKind reports the coercion rule of a map member. Members without a
// declared kind are generic.
func (d Descriptor) EntryKind(key string) Kind {
	if k, ok := d.entryKinds[key]; ok {
		return k
	}
	return KindGeneric
}

// New returns an unset Field for this descriptor.
func (d Descriptor) New() Field {
	if d.kind == KindMap {
		return &Mapping{name: d.name, desc: d}
	}
	return &Scalar{name: d.name, kind: d.kind}
}

// Scalar is a generic, int or text field.
type Scalar struct {
	name  string
	kind  Kind
	value any
	set   bool
}

func (f *Scalar) Name() string { return f.name }
func (f *Scalar) Kind() Kind   { return f.kind }
func (f *Scalar) Value() any   { return f.value }
func (f *Scalar) IsSet() bool  { return f.set }

func (f *Scalar) Set(v any) error {
	coerced, err := Coerce(f.kind, v)
	if err != nil {
		return named(err, f.name)
	}
	f.value = coerced
	f.set = true
	return nil
}

func (f *Scalar) Reset() {
	f.value = nil
	f.set = false
}

func (f *Scalar) Render() []Entry {
	return []Entry{{Key: f.name, Value: f.value, Name: f.name}}
}

// Mapping is a map field. Each member renders as "<name>/<member>".
type Mapping struct {
	name    string
	desc    Descriptor
	entries map[string]any
}

func (f *Mapping) Name() string { return f.name }
func (f *Mapping) Kind() Kind   { return KindMap }
func (f *Mapping) IsSet() bool  { return f.entries != nil }

// Value returns a copy of the members, or nil if unset.
func (f *Mapping) Value() any {
	if f.entries == nil {
		return nil
	}
	return f.Entries()
}

// Entries returns a copy of the members. It is nil when the field is unset.
func (f *Mapping) Entries() map[string]any {
	if f.entries == nil {
		return nil
	}
	out := make(map[string]any, len(f.entries))
	for k, v := range f.entries {
		out[k] = v
	}
	return out
}

func (f *Mapping) Set(v any) error {
	coerced, err := Coerce(KindMap, v)
	if err != nil {
		return named(err, f.name)
	}
	m := coerced.(map[string]any)
	for k, val := range m {
		kind := f.desc.EntryKind(k)
		if kind == KindGeneric {
			continue
		}
		cv, err := Coerce(kind, val)
		if err != nil {
			return named(err, f.name+"/"+k)
		}
		m[k] = cv
	}
	f.entries = m
	return nil
}

// SetEntry coerces v with the member's declared kind and stores it under key.
func (f *Mapping) SetEntry(key string, v any) error {
	cv, err := Coerce(f.desc.EntryKind(key), v)
	if err != nil {
		return named(err, f.name+"/"+key)
	}
	if f.entries == nil {
		f.entries = make(map[string]any)
	}
	f.entries[key] = cv
	return nil
}

func (f *Mapping) Reset() {
	f.entries = nil
}

// Render returns one entry per member, sorted by member key.
func (f *Mapping) Render() []Entry {
	keys := make([]string, 0, len(f.entries))
	for k := range f.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rendered := make([]Entry, 0, len(keys))
	for _, k := range keys {
		rendered = append(rendered, Entry{
			Key:   f.name + "/" + k,
			Value: f.entries[k],
			Dir:   true,
			Name:  f.name,
		})
	}
	return rendered
}
