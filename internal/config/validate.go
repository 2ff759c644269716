// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is complete and internally
// consistent. Struct tags cover ranges and enums; the cross-field rules
// that tags cannot express follow.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config field %s: failed %q validation (value %v)",
				koanfPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	return c.validateNeo4j()
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS is enabled without an embedded server")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when the embedded NATS server is enabled")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.Provider != "openai" {
		return nil
	}
	if c.Extraction.APIKey == "" {
		return fmt.Errorf("EXTRACTION_API_KEY is required when EXTRACTION_PROVIDER=openai")
	}
	if c.Extraction.RequestsPerSecond <= 0 {
		return fmt.Errorf("EXTRACTION_REQUESTS_PER_SECOND must be positive")
	}
	if c.Extraction.ChunkMaxSize < c.Extraction.ChunkTargetSize {
		return fmt.Errorf("CHUNK_MAX_SIZE (%d) must be >= CHUNK_TARGET_SIZE (%d)",
			c.Extraction.ChunkMaxSize, c.Extraction.ChunkTargetSize)
	}
	return nil
}

func (c *Config) validateNeo4j() error {
	if !c.Neo4j.Enabled {
		return nil
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("NEO4J_URI is required when Neo4j export is enabled")
	}
	if c.Neo4j.Username == "" || c.Neo4j.Password == "" {
		return fmt.Errorf("NEO4J_USERNAME and NEO4J_PASSWORD are required when Neo4j export is enabled")
	}
	return nil
}

// koanfPath turns a validator namespace like "Config.Server.Port" into the
// koanf-style path users see in config files and error messages.
func koanfPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
