package content

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed quiz.schema.json
var quizSchemaJSON []byte

const quizSchemaURL = "schema://quiz.json"

var compiledQuizSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(quizSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse quiz schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(quizSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add quiz schema: %w", err)
	}
	return c.Compile(quizSchemaURL)
})

// validateQuiz checks a decoded YAML document against the quiz schema. The document is
// re-read as JSON so numbers and maps have the shapes the validator expects.
func validateQuiz(doc any) error {
	schema, err := compiledQuizSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode quiz document: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse quiz document: %w", err)
	}
	return schema.Validate(parsed)
}
