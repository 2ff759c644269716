// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import "github.com/goccy/go-json"

// marshal and unmarshal centralize the store's codec.
func marshal(v any) ([]byte, error)    { return json.Marshal(v) }
func unmarshal(b []byte, v any) error  { return json.Unmarshal(b, v) }
