package quality

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/docaudit/pkg/model"
)

// metadataFields are the entity lists the model is asked to extract
var metadataFields = []string{"people", "locations", "organizations", "dates", "topics", "keywords", "emails", "phones"}

// AnswerSchema describes the JSON object the scoring prompt asks for. It is
// sent to the model as the response schema; Validate still guards whatever
// comes back.
func AnswerSchema() *jsonschema.Schema {
	// every node of a schema tree must be a distinct value
	dims := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(model.Dimensions)),
	}
	for _, d := range model.Dimensions {
		dims.Properties[string(d)] = dimensionSchema()
		dims.Required = append(dims.Required, string(d))
	}

	metadata := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(metadataFields)),
	}
	for _, name := range metadataFields {
		metadata.Properties[name] = &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		}
	}

	action := &jsonschema.Schema{
		Type: "string",
		Enum: []any{
			string(model.ActionKeep),
			string(model.ActionReview),
			string(model.ActionQuarantine),
			string(model.ActionDiscard),
		},
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"summary":            {Type: "string"},
			"context":            {Type: "string"},
			"document_type":      {Type: "string"},
			"metadata":           metadata,
			"dimensions":         dims,
			"recommended_action": action,
		},
		Required: []string{"summary", "document_type", "dimensions"},
	}
}

func dimensionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"score": {
				Type:    "integer",
				Minimum: jsonschema.Ptr(float64(model.MinDimensionScore)),
				Maximum: jsonschema.Ptr(float64(model.MaxDimensionScore)),
			},
			"evidence": {Type: "string"},
		},
		Required: []string{"score", "evidence"},
	}
}
