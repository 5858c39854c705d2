package conversation

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Schema describes the persisted chatState document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
	schema := reflector.Reflect(&Session{})
	schema.Title = "gemchat chat state"
	return schema
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid chat state: " + strings.Join(e.Problems, "; ")
}

// Validate checks a persisted document against Schema. Documents written before
// conversations carried runSettings are still valid.
func Validate(doc []byte) error {
	schema := Schema()
	// gojsonschema only understands drafts up to 7
	schema.Version = ""
	schema.ID = ""

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat state schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return errors.Wrap(err, "failed to validate chat state")
	}
	if result.Valid() {
		return nil
	}

	ret := &ValidationError{}
	for _, e := range result.Errors() {
		ret.Problems = append(ret.Problems, e.String())
	}
	return ret
}
