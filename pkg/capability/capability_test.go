// Copyright 2025 The Arcflow Authors
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

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcflow-run/arcflow/pkg/tools"
)

func TestRegistry_LookupByName(t *testing.T) {
	r := NewRegistry()
	c := New("search", "use search for web queries", tools.Tool{Name: "web_search"})
	r.Register(c)

	got, ok := r.Lookup("search")
	assert.True(t, ok)
	assert.Equal(t, "use search for web queries", got.Guide())
	assert.Len(t, got.Tools(), 1)
}

func TestRegistry_FirstRegisteredWins(t *testing.T) {
	r := NewRegistry()
	r.Register(New("x", "first"))
	r.Register(New("x", "second"))

	got, _ := r.Lookup("x")
	assert.Equal(t, "first", got.Guide())
}
