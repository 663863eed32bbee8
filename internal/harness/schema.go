package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Schema validation error codes (E200-E209)
const (
	ErrSchemaCompile  = "E200" // embedded schema failed to compile
	ErrSchemaDecode   = "E201" // document is not YAML
	ErrSchemaMismatch = "E202" // document does not satisfy #Scenario
)

// ValidationError describes one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateSchema checks a scenario document against the embedded CUE schema.
// Returns all violations found (does not fail-fast).
func ValidateSchema(data []byte) []ValidationError {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []ValidationError{{Message: err.Error(), Code: ErrSchemaCompile}}
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []ValidationError{{Message: err.Error(), Code: ErrSchemaDecode}}
	}

	value := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(ctx.Encode(doc))
	err := value.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchemaMismatch,
		})
	}
	return out
}

// fieldPath joins a CUE error path, dropping the schema definition name.
func fieldPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if p == "#Scenario" {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}
