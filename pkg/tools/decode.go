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

import "github.com/mitchellh/mapstructure"

// decodeArgs maps the raw JSON-decoded tool-call arguments onto a typed
// struct, the same mapstructure-based decoding a YAML config loader
// would use for raw config maps.
func decodeArgs[Args any](raw map[string]any) (Args, error) {
	var args Args
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &args,
	})
	if err != nil {
		return args, err
	}
	if err := decoder.Decode(raw); err != nil {
		return args, err
	}
	return args, nil
}
