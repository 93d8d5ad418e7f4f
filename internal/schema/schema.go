package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const createRequest = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["productId"],
  "properties": {
    "productId": { "type": "string", "minLength": 1, "maxLength": 64 }
  }
}`

const captureRequest = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["orderId", "productId"],
  "properties": {
    "orderId":   { "type": "string", "minLength": 1, "maxLength": 64, "pattern": "^[A-Za-z0-9-]+$" },
    "productId": { "type": "string", "minLength": 1, "maxLength": 64 }
  }
}`

var (
	CreateRequest  = mustCompile(createRequest)
	CaptureRequest = mustCompile(captureRequest)
)

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling schema: %v", err))
	}
	return s
}

// Validate checks body against s and joins every violation into one error.
func Validate(s *gojsonschema.Schema, body []byte) error {
	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.String())
		}
		return fmt.Errorf("request does not conform to schema: %s", sb.String())
	}
	return nil
}
