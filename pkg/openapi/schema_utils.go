package openapi

import (
	"encoding"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

var textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// GenerateSchema creates an OpenAPI schema from a Go struct using reflection
func GenerateSchema(v any) *Schema {
	if v == nil {
		return nil
	}

	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return typeToSchema(t, make(map[reflect.Type]bool))
}

// typeToSchema converts t; seen breaks cycles through pointer fields
func typeToSchema(t reflect.Type, seen map[reflect.Type]bool) *Schema {
	switch t {
	case reflect.TypeOf(time.Time{}):
		return &Schema{Type: "string", Format: "date-time"}
	case reflect.TypeOf(uuid.UUID{}):
		return &Schema{Type: "string", Format: "uuid"}
	case reflect.TypeOf(time.Duration(0)):
		return &Schema{Type: "integer", Format: "int64"}
	}
	if t.Kind() != reflect.Ptr && t.Implements(textMarshaler) {
		return &Schema{Type: "string"}
	}

	switch t.Kind() {
	case reflect.Struct:
		if seen[t] {
			return &Schema{Type: "object"}
		}
		seen[t] = true
		defer delete(seen, t)

		schema := &Schema{
			Type:       "object",
			Properties: make(map[string]*Schema),
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

			name, opts, _ := strings.Cut(jsonTag, ",")
			if name == "" {
				name = field.Name
			}

			propSchema := typeToSchema(field.Type, seen)
			if propSchema == nil {
				continue
			}
			schema.Properties[name] = propSchema
			if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Ptr {
				schema.Required = append(schema.Required, name)
			}
		}
		return schema

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}
		}
		return &Schema{
			Type:  "array",
			Items: typeToSchema(t.Elem(), seen),
		}

	case reflect.Map:
		return &Schema{
			Type:                 "object",
			AdditionalProperties: typeToSchema(t.Elem(), seen),
		}

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Ptr:
		return typeToSchema(t.Elem(), seen)

	case reflect.Interface:
		return &Schema{}

	default:
		return &Schema{Type: "string"}
	}
}
