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

package tools

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Wrap builds a Tool whose Parameters schema is derived from a Go struct
// via reflection, so callers can define tool arguments as ordinary typed
// structs instead of hand-writing JSON Schema.
func Wrap[Args any](name, description string, supportParallelCalls bool, fn func(ctx context.Context, args Args, callID string) (Result, error)) Tool {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(Args))

	return Tool{
		Name:                 name,
		Description:          description,
		Parameters:           schema,
		SupportParallelCalls: supportParallelCalls,
		Execute: func(ctx context.Context, raw map[string]any, callID string) (Result, error) {
			args, err := decodeArgs[Args](raw)
			if err != nil {
				return Result{}, err
			}
			return fn(ctx, args, callID)
		},
	}
}
