// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package config provides layered configuration loading via Koanf v2.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML config
// file, environment variables. All settings are reachable through every
// layer; the env variable names are listed in config_env.go.
package config
