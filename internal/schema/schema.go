// Package schema implements the minimal JSON-Schema subset used to describe
// and validate tool parameters: object type, properties, required, enum and
// primitive item types.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports a single argument that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Validate checks args against a minimal JSON-Schema-like map. Only the
// subset produced by FromStruct (or written by hand in the same shape) is
// understood: type, properties, required, enum.
func Validate(args map[string]any, spec map[string]any) error {
	props, _ := spec["properties"].(map[string]any)

	if required, ok := spec["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return &ValidationError{Field: name, Message: "missing required field"}
			}
		}
	}

	for name, raw := range args {
		propSpec, ok := props[name].(map[string]any)
		if !ok {
			continue // unknown arguments are tolerated; the model over-supplies at times
		}
		if err := validateValue(name, raw, propSpec); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(name string, value any, spec map[string]any) error {
	wantType, _ := spec["type"].(string)
	if wantType != "" && !matchesType(value, wantType) {
		return &ValidationError{
			Field:   name,
			Value:   value,
			Message: fmt.Sprintf("expected %s, got %T", wantType, value),
		}
	}

	if enum, ok := spec["enum"].([]string); ok && len(enum) > 0 {
		s, isString := value.(string)
		if !isString {
			return &ValidationError{Field: name, Value: value, Message: "enum field must be a string"}
		}
		for _, allowed := range enum {
			if s == allowed {
				return nil
			}
		}
		return &ValidationError{
			Field:   name,
			Value:   value,
			Message: fmt.Sprintf("must be one of [%s]", strings.Join(enum, ", ")),
		}
	}
	return nil
}

func matchesType(value any, wantType string) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// FromStruct derives a parameter schema from a struct via reflection. Field
// names come from json tags; a description tag becomes the property
// description; omitempty marks a field optional.
func FromStruct(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	properties := map[string]any{}
	required := []string{}

	if t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": properties}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		optional := false
		if jsonTag != "" {
			tagParts := strings.Split(jsonTag, ",")
			if tagParts[0] != "" {
				name = tagParts[0]
			}
			for _, opt := range tagParts[1:] {
				if opt == "omitempty" {
					optional = true
				}
			}
		}

		prop := map[string]any{"type": jsonType(field.Type)}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		properties[name] = prop
		if !optional {
			required = append(required, name)
		}
	}

	spec := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		spec["required"] = required
	}
	return spec
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
