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

// Package field implements the typed value slots that make up a composite
// object: scalar fields (generic, int, text) and map fields, together with
// the coercion rules applied on every assignment and the rendering of a
// field into store entries.
package field

import "fmt"

// Kind identifies the coercion rule of a field.
type Kind int

const (
	// KindGeneric stores values as given.
	KindGeneric Kind = iota
	// KindInt casts values to int64.
	KindInt
	// KindText casts values to their textual form.
	KindText
	// KindMap accepts string-keyed maps only.
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one rendered (key, value) pair. Key is relative to the owning
// object until the object prefixes it with its namespace. Dir marks members
// of a map field.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Dir   bool   `json:"dir"`
	Name  string `json:"name"`
}
