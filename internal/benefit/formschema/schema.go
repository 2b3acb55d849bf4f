// Package formschema derives a JSON schema from a benefit's application
// form definition and validates inbound payloads against it before an
// application is accepted.
package formschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	benefit "benefit-gateway/internal/benefit/models"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// Build produces the JSON schema document for a form. Required fields
// become required properties; fields with options become enums. Unknown
// extra payload keys are allowed since payloads also carry correlation
// fields like orderId and bap_application_id.
func Build(form []benefit.FieldGroup) (map[string]any, error) {
	properties := make(map[string]any)
	var required []string

	for _, group := range form {
		for _, field := range group.Fields {
			if field.Name == "" {
				return nil, dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("form group %q has a field without a name", group.FieldsGroupName))
			}
			properties[field.Name] = fieldSchema(field)
			if field.Required {
				required = append(required, field.Name)
			}
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, nil
}

func fieldSchema(field benefit.FormField) map[string]any {
	prop := map[string]any{}
	switch strings.ToLower(field.Type) {
	case "number", "integer", "amount":
		// Payloads arrive as strings or numbers depending on the BAP.
		prop["type"] = []string{"number", "string"}
	case "checkbox", "multiselect":
		prop["type"] = "array"
	default:
		prop["type"] = "string"
	}

	if len(field.Options) > 0 {
		enum := make([]any, 0, len(field.Options))
		for _, opt := range field.Options {
			enum = append(enum, opt.Value)
		}
		if prop["type"] == "array" {
			prop["items"] = map[string]any{"enum": enum}
		} else {
			prop["enum"] = enum
		}
	}
	return prop
}

// Validate checks an application payload against the form definition.
// Violations come back as one CodeInvalidInput error listing every
// failed constraint.
func Validate(form []benefit.FieldGroup, payload map[string]any) error {
	if len(form) == 0 {
		return nil
	}

	schema, err := Build(form)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode form schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(raw),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "run schema validation")
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		messages = append(messages, violation.String())
	}
	return dErrors.New(dErrors.CodeInvalidInput,
		"application data failed validation: "+strings.Join(messages, "; "))
}
