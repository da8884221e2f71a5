package content

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// questionBankSchema is the JSON shape of an upstream question bank: an
// array of question records. Graph-level rules (duplicate ids, subconcept
// ownership) are the builder's concern, not the schema's.
const questionBankSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "question_title", "question", "difficulty", "step_no", "sub_step_no", "sl_no"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "question_title": {"type": "string", "minLength": 1},
      "question": {"type": "string"},
      "difficulty": {"type": "string"},
      "step_no": {"type": "integer", "minimum": 1},
      "sub_step_no": {"type": "integer", "minimum": 1},
      "sl_no": {"type": "integer", "minimum": 1},
      "standard_concepts": {"type": "array", "items": {"type": "string"}},
      "sub_concepts": {"type": "array", "items": {"type": "string"}},
      "solution_approaches": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["approach_name"],
          "properties": {
            "approach_name": {"type": "string"},
            "explanation": {"type": "string"}
          }
        }
      }
    }
  }
}`

// validateJSONBank checks raw JSON bank data against the schema before it
// is decoded into records.
func validateJSONBank(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(questionBankSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return fmt.Errorf("question bank schema violation: %s", strings.Join(issues, "; "))
}
