package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

func object(required []string, props ...property) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for _, p := range props {
		s = s.WithProperty(p.name, p.schema)
	}
	if len(required) > 0 {
		s = s.WithRequired(required)
	}
	return s
}

type property struct {
	name   string
	schema *openapi3.Schema
}

func prop(name, description string, s *openapi3.Schema) property {
	s.Description = description
	return property{name: name, schema: s}
}

func str() *openapi3.Schema { return openapi3.NewStringSchema() }

func num() *openapi3.Schema { return openapi3.NewFloat64Schema() }

func integer() *openapi3.Schema { return openapi3.NewIntegerSchema() }

func enum[T ~string](values []T) *openapi3.Schema {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = string(v)
	}
	return openapi3.NewStringSchema().WithEnum(vals...)
}

func stringList() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}

// render converts a schema into the JSON-Schema object sent in a function
// declaration. An object schema always carries a properties key.
func render(s *openapi3.Schema) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out, nil
}

// validate checks decoded JSON arguments against the tool schema. The
// returned message names the offending field when there is one.
func validate(s *openapi3.Schema, args map[string]any) error {
	err := s.VisitJSON(args)
	if err == nil {
		return nil
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if path := se.JSONPointer(); len(path) > 0 {
			return fmt.Errorf("%s: %s", strings.Join(path, "."), se.Reason)
		}
		return errors.New(se.Reason)
	}
	return err
}

// dropNulls removes explicit JSON nulls, which models emit for omitted optionals.
func dropNulls(args map[string]any) map[string]any {
	for k, v := range args {
		if v == nil {
			delete(args, k)
		}
	}
	return args
}
