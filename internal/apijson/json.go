/*
Copyright 2025 The apidiff Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package apijson is the JSON encoding/decoding layer shared by rule
// loading, artifact writing, and bundle replay. It defaults to
// bytedance/sonic for marshal/unmarshal speed on the bodies this tool
// spends most of its time serializing.
package apijson

import "github.com/bytedance/sonic"

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// MarshalIndent returns a pretty-printed JSON encoding of v, used for
// human-facing artifact files (§4.8).
func MarshalIndent(v any) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(v, "", "  ")
}

// Unmarshal parses JSON-encoded data into v.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
