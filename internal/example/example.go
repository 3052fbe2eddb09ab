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

// Package example defines the example object type used by the etcdobj CLI.
package example

import (
	"etcdobj/pkg/field"
	"etcdobj/pkg/object"
)

const Namespace = "example"

// Schema is anint (int), astr (text) and adict (map) under /example/.
var Schema = object.MustNewSchema(Namespace,
	field.Int("anint"),
	field.Text("astr"),
	field.Map("adict"),
)

// Values are the optional inputs of an example object. Nil members stay unset.
type Values struct {
	AnInt *int64
	AStr  *string
	ADict map[string]string
}

// New builds an example object from v.
func New(v Values) (*object.Object, error) {
	initial := make(map[string]any, 3)
	if v.AnInt != nil {
		initial["anint"] = *v.AnInt
	}
	if v.AStr != nil {
		initial["astr"] = *v.AStr
	}
	if v.ADict != nil {
		initial["adict"] = v.ADict
	}
	return Schema.New(initial)
}
