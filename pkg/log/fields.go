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

package log

import (
	"time"

	"go.uber.org/zap"
)

// Common field constructors

func String(key, val string) zap.Field {
	return zap.String(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Any(key string, val interface{}) zap.Field {
	return zap.Any(key, val)
}

// Domain fields

// KeyString store key
func KeyString(key string) zap.Field {
	return zap.String("key", key)
}

// Value stored value; large values only log their size
func Value(value string) zap.Field {
	if len(value) > 1024 {
		return zap.Int("value_size", len(value))
	}
	return zap.String("value", value)
}

// Namespace object namespace name. Not to be confused with zap.Namespace.
func Namespace(name string) zap.Field {
	return zap.String("namespace", name)
}

// FieldName declared field name
func FieldName(name string) zap.Field {
	return zap.String("field", name)
}

// Operation adapter operation: save, read, delete, save_atomic
func Operation(op string) zap.Field {
	return zap.String("operation", op)
}

// OpID per-call correlation id
func OpID(id string) zap.Field {
	return zap.String("op_id", id)
}

// Count number of entries
func Count(count int) zap.Field {
	return zap.Int("count", count)
}

// Endpoints store endpoints
func Endpoints(eps []string) zap.Field {
	return zap.Strings("endpoints", eps)
}

// Component component name
func Component(name string) zap.Field {
	return zap.String("component", name)
}
