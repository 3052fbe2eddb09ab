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

// Package object implements composite objects: a schema names a namespace
// and an ordered list of field descriptors, and every object built from it
// owns one field per descriptor.
package object

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"etcdobj/pkg/field"
)

var (
	// ErrInvalidSchema is wrapped by NewSchema validation failures.
	ErrInvalidSchema = errors.New("invalid schema")
)

// UnknownFieldError is returned when a name is neither a declared field nor
// an auxiliary attribute of the object.
type UnknownFieldError struct {
	Namespace string
	Field     string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field or attribute %q", e.Namespace, e.Field)
}

// Schema is the fixed shape of a composite type. It is immutable once built
// and may be shared by any number of objects.
type Schema struct {
	namespace string
	fields    []field.Descriptor
	index     map[string]int
}

// NewSchema validates and builds a schema. Field order is preserved and
// drives render order.
func NewSchema(namespace string, fields ...field.Descriptor) (*Schema, error) {
	if namespace == "" || strings.Contains(namespace, "/") {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidSchema, namespace)
	}

	s := &Schema{
		namespace: namespace,
		fields:    make([]field.Descriptor, 0, len(fields)),
		index:     make(map[string]int, len(fields)),
	}
	for _, d := range fields {
		name := d.Name()
		if name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("%w: field name %q in %s", ErrInvalidSchema, name, namespace)
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q in %s", ErrInvalidSchema, name, namespace)
		}
		s.index[name] = len(s.fields)
		s.fields = append(s.fields, d)
	}
	return s, nil
}

// MustNewSchema is like NewSchema but panics on error. Intended for
// package-level schema variables.
func MustNewSchema(namespace string, fields ...field.Descriptor) *Schema {
	s, err := NewSchema(namespace, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Namespace() string { return s.namespace }

// FieldNames returns the declared field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, d := range s.fields {
		names[i] = d.Name()
	}
	return names
}

// Descriptor looks up a declared field.
func (s *Schema) Descriptor(name string) (field.Descriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return field.Descriptor{}, false
	}
	return s.fields[i], true
}

// New builds an object and assigns every declared field present in initial.
// Names in initial that are not declared fields are ignored.
func (s *Schema) New(initial map[string]any) (*Object, error) {
	o := &Object{
		schema: s,
		fields: make([]field.Field, len(s.fields)),
	}
	for i, d := range s.fields {
		o.fields[i] = d.New()
	}
	for i, d := range s.fields {
		v, ok := initial[d.Name()]
		if !ok {
			continue
		}
		if err := o.fields[i].Set(v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustNew is like New but panics on error.
func (s *Schema) MustNew(initial map[string]any) *Object {
	o, err := s.New(initial)
	if err != nil {
		panic(err)
	}
	return o
}

// Object is one instance of a schema. It is not safe for concurrent use.
type Object struct {
	schema *Schema
	fields []field.Field
	attrs  map[string]any
}

func (o *Object) Schema() *Schema    { return o.schema }
func (o *Object) Namespace() string { return o.schema.namespace }

// Field returns the field instance for name.
func (o *Object) Field(name string) (field.Field, bool) {
	i, ok := o.schema.index[name]
	if !ok {
		return nil, false
	}
	return o.fields[i], true
}

// Fields returns the field instances in declaration order.
func (o *Object) Fields() []field.Field {
	out := make([]field.Field, len(o.fields))
	copy(out, o.fields)
	return out
}

// Get returns the coerced value of a declared field, or the value of an
// auxiliary attribute.
func (o *Object) Get(name string) (any, error) {
	if f, ok := o.Field(name); ok {
		return f.Value(), nil
	}
	if v, ok := o.attrs[name]; ok {
		return v, nil
	}
	return nil, &UnknownFieldError{Namespace: o.schema.namespace, Field: name}
}

// Set routes declared fields through their coercion. Any other name is kept
// as an auxiliary attribute that is never rendered or persisted.
func (o *Object) Set(name string, v any) error {
	if f, ok := o.Field(name); ok {
		return f.Set(v)
	}
	if o.attrs == nil {
		o.attrs = make(map[string]any)
	}
	o.attrs[name] = v
	return nil
}

// SetEntry assigns one member of a map field.
func (o *Object) SetEntry(name, key string, v any) error {
	f, ok := o.Field(name)
	if !ok {
		return &UnknownFieldError{Namespace: o.schema.namespace, Field: name}
	}
	m, ok := f.(*field.Mapping)
	if !ok {
		return &field.TypeMismatchError{Field: name, Value: f.Value()}
	}
	return m.SetEntry(key, v)
}

// Int returns an int field's value. ok is false when the field is unset or
// not an int field.
func (o *Object) Int(name string) (n int64, ok bool) {
	f, found := o.Field(name)
	if !found {
		return 0, false
	}
	n, ok = f.Value().(int64)
	return n, ok
}

// Text returns a text field's value.
func (o *Object) Text(name string) (s string, ok bool) {
	f, found := o.Field(name)
	if !found {
		return "", false
	}
	s, ok = f.Value().(string)
	return s, ok
}

// Map returns a copy of a map field's members.
func (o *Object) Map(name string) (map[string]any, bool) {
	f, found := o.Field(name)
	if !found {
		return nil, false
	}
	m, ok := f.(*field.Mapping)
	if !ok || !m.IsSet() {
		return nil, false
	}
	return m.Entries(), true
}

// Render flattens the object into fully-qualified entries,
// "/<namespace>/<field>[/<member>]", in declaration order. The result is
// built fresh on every call.
func (o *Object) Render() []field.Entry {
	var rendered []field.Entry
	prefix := "/" + o.schema.namespace + "/"
	for _, f := range o.fields {
		for _, e := range f.Render() {
			e.Key = prefix + e.Key
			rendered = append(rendered, e)
		}
	}
	return rendered
}

// MarshalJSON encodes the rendered entries.
func (o *Object) MarshalJSON() ([]byte, error) {
	rendered := o.Render()
	if rendered == nil {
		rendered = []field.Entry{}
	}
	return json.Marshal(rendered)
}
