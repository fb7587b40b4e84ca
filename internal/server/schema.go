package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// messageSchemaJSON describes the body of POST / and POST /v1/messages.
// Semantic checks (id charset, sender role, text length) stay in the
// orchestrator so they apply to every entry point.
const messageSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Inbound scam message",
  "type": "object",
  "required": ["sessionId", "message"],
  "additionalProperties": true,
  "definitions": {
    "message": {
      "type": "object",
      "required": ["sender", "text"],
      "properties": {
        "sender": {"type": "string", "minLength": 1},
        "text": {"type": "string"},
        "timestamp": {"type": "integer", "minimum": 0, "maximum": 9999999999999}
      }
    }
  },
  "properties": {
    "sessionId": {"type": "string"},
    "message": {"$ref": "#/definitions/message"},
    "conversationHistory": {
      "type": "array",
      "items": {"$ref": "#/definitions/message"}
    },
    "metadata": {
      "type": ["object", "null"],
      "properties": {
        "channel": {"type": ["string", "null"]},
        "language": {"type": ["string", "null"]},
        "locale": {"type": ["string", "null"]}
      }
    }
  }
}`

var messageSchema = mustCompileSchema(messageSchemaJSON)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compiling message schema: %v", err))
	}
	return schema
}

// errSchema prefixes schema violations.
var errSchema = errors.New("invalid request body")

// validateBody checks raw JSON against schema and joins every violation
// into one error.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errSchema, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", errSchema, strings.Join(msgs, "; "))
}
