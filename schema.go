package lectern

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor derives a JSON Schema for T, suitable for the Parameters
// field of a ToolDefinition. Fields use their json tags; a jsonschema tag
// supplies descriptions and required markers. The schema is inlined (no
// $ref or $defs) because model providers reject referenced schemas.
func SchemaFor[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	raw, err := json.Marshal(schema)
	if err != nil {
		panic("lectern: reflect tool schema: " + err.Error())
	}
	return raw
}
