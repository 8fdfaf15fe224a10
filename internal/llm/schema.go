package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildReportJSONSchema returns the report schema as a generic map.
// Extra keys from the model are tolerated; the five fields are not optional.
func BuildReportJSONSchema() map[string]any {
	nonEmpty := func() map[string]any {
		return map[string]any{"type": "string", "minLength": 1}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"purposeAndScope": nonEmpty(),
			"summary":         nonEmpty(),
			"highlights": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    nonEmpty(),
			},
			"issues":          nonEmpty(),
			"recommendations": nonEmpty(),
		},
		"required": []string{"purposeAndScope", "summary", "highlights", "issues", "recommendations"},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ParseReport repairs, validates and decodes a raw model answer.
// Any missing or blank field rejects the whole report.
func ParseReport(raw string) (Report, error) {
	obj, err := Repair(raw)
	if err != nil {
		return Report{}, &Error{Op: "repair", Err: err}
	}
	if err := ValidateJSONAgainstSchema(BuildReportJSONSchema(), []byte(obj)); err != nil {
		return Report{}, InvalidResponse("validate", "%v", err)
	}

	var r Report
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return Report{}, InvalidResponse("decode", "%v", err)
	}
	r.PurposeAndScope = strings.TrimSpace(r.PurposeAndScope)
	r.Summary = strings.TrimSpace(r.Summary)
	r.Issues = strings.TrimSpace(r.Issues)
	r.Recommendations = strings.TrimSpace(r.Recommendations)
	for i, h := range r.Highlights {
		r.Highlights[i] = strings.TrimSpace(h)
	}

	switch {
	case r.PurposeAndScope == "":
		return Report{}, InvalidResponse("validate", "purposeAndScope is blank")
	case r.Summary == "":
		return Report{}, InvalidResponse("validate", "summary is blank")
	case r.Issues == "":
		return Report{}, InvalidResponse("validate", "issues is blank")
	case r.Recommendations == "":
		return Report{}, InvalidResponse("validate", "recommendations is blank")
	}
	for i, h := range r.Highlights {
		if h == "" {
			return Report{}, InvalidResponse("validate", "highlights[%d] is blank", i)
		}
	}
	return r, nil
}
