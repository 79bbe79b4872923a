// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package outline

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// forestSchema describes the recursive {title, prompt, children} shape
// the model must reply with. Defined once and reused via a string
// loader, not generated per call.
const forestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"minItems": 1,
	"items": {"$ref": "#/definitions/node"},
	"definitions": {
		"node": {
			"type": "object",
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"prompt": {"type": "string"},
				"children": {
					"type": "array",
					"items": {"$ref": "#/definitions/node"}
				}
			},
			"required": ["title"],
			"additionalProperties": false
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(forestSchema)

// validateSchema checks raw (the tag's inner JSON) against forestSchema
// before it is unmarshaled, catching a reply that parses as JSON but
// doesn't match the expected shape (wrong field types, stray top-level
// object instead of array, unknown fields).
func validateSchema(raw string) error {
	documentLoader := gojsonschema.NewStringLoader(raw)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
