package strategy

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaOption customizes the schema built by ToJSONSchema.
type SchemaOption func(*jsonschema.Schema)

// WithTitle sets the title of the root schema.
func WithTitle(title string) SchemaOption {
	return func(s *jsonschema.Schema) {
		s.Title = title
	}
}

// WithDescription sets the description of the root schema.
func WithDescription(description string) SchemaOption {
	return func(s *jsonschema.Schema) {
		s.Description = description
	}
}

// ToJSONSchema reflects a parameter struct into an inlined JSON schema.
// Parameters carry defaults, so a property is required only when tagged
// jsonschema:"required". Non-struct values have no properties to describe
// and produce the schema of their type.
func ToJSONSchema[T any](params T, opts ...SchemaOption) (string, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(params)
	schema.Version = ""

	for _, opt := range opts {
		opt(schema)
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
