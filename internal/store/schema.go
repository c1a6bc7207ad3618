package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/project.schema.json
var projectSchemaJSON string

const projectSchemaURL = "https://taskdeck.local/schema/project.schema.json"

var (
	projectSchemaOnce sync.Once
	projectSchema     *jsonschema.Schema
	projectSchemaErr  error
)

func compiledProjectSchema() (*jsonschema.Schema, error) {
	projectSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(projectSchemaURL, strings.NewReader(projectSchemaJSON)); err != nil {
			projectSchemaErr = err
			return
		}
		projectSchema, projectSchemaErr = compiler.Compile(projectSchemaURL)
	})
	return projectSchema, projectSchemaErr
}

// validateProjectDocument checks a project document (anything that marshals to
// the project shape) before it is written.
func validateProjectDocument(doc any) error {
	schema, err := compiledProjectSchema()
	if err != nil {
		return fmt.Errorf("compile project schema: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := schema.Validate(obj); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, schemaErrorSummary(err))
	}
	return nil
}

func schemaErrorSummary(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	collectSchemaMessages(ve, &msgs)
	if len(msgs) == 0 {
		return ve.Message
	}
	return strings.Join(msgs, "; ")
}

func collectSchemaMessages(err *jsonschema.ValidationError, out *[]string) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaMessages(cause, out)
	}
}
