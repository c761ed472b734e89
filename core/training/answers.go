package training

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/qri-io/jsonschema"

	"github.com/zubacap/zubacap-go/core"
)

// answerSchemaJSON constrains the free-form answer payload: a set of
// per-question responses, each naming the question and carrying either a
// chosen alternative or free text.
const answerSchemaJSON = `{
	"type": "object",
	"required": ["respuestas"],
	"additionalProperties": false,
	"properties": {
		"respuestas": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["pregunta"],
				"additionalProperties": false,
				"properties": {
					"pregunta":    {"type": "integer", "minimum": 1},
					"alternativa": {"type": "integer", "minimum": 1},
					"texto":       {"type": "string"}
				}
			}
		}
	}
}`

var answerSchema = mustSchema(answerSchemaJSON)

var errInvalidAnswer = errors.New("invalid answer payload")

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic(err)
	}
	return rs
}

// ValidateAnswerPayload checks an opaque answer document against the answer
// schema before it crosses the wire. Schema violations come back as a
// ValidationError with one field entry per violation.
func ValidateAnswerPayload(ctx context.Context, raw json.RawMessage) error {
	if len(raw) == 0 {
		return core.NewValidationError(errInvalidAnswer,
			core.FieldError{Field: "respuesta", Error: "this field is required"})
	}

	keyErrs, err := answerSchema.ValidateBytes(ctx, raw)
	if err != nil {
		return core.NewValidationError(errInvalidAnswer,
			core.FieldError{Field: "respuesta", Error: err.Error()})
	}
	if len(keyErrs) == 0 {
		return nil
	}

	flds := make([]core.FieldError, 0, len(keyErrs))
	for _, kerr := range keyErrs {
		field := kerr.PropertyPath
		if field == "" || field == "/" {
			field = "respuesta"
		}
		flds = append(flds, core.FieldError{Field: field, Error: kerr.Message})
	}
	return core.NewValidationError(errInvalidAnswer, flds...)
}
