package validate

import "fmt"

// FieldSpec describes one required/optional parameter a dispatch
// operation accepts. This is intentionally a small closed structure
// rather than a JSON-Schema library: dispatch operations take a fixed,
// known-in-advance parameter set (spec.md names every operation's
// params explicitly), so a general schema validator would add
// indirection without buying format flexibility CLEO never needs.
type FieldSpec struct {
	Name     string
	Required bool
	Kind     Kind
}

// Kind is the accepted Go-ish type of a Params value.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindList   Kind = "list"
)

// SchemaRegistry maps a dispatch operation's full name to its FieldSpecs.
type SchemaRegistry struct {
	schemas map[string][]FieldSpec
}

// NewSchemaRegistry constructs an empty SchemaRegistry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: map[string][]FieldSpec{}}
}

// Register attaches fields to operation.
func (r *SchemaRegistry) Register(operation string, fields ...FieldSpec) {
	r.schemas[operation] = fields
}

// Validate checks params against operation's registered schema, returning
// a violation message per problem found. An operation with no registered
// schema is treated as unconstrained.
func (r *SchemaRegistry) Validate(operation string, params map[string]interface{}) []string {
	fields, ok := r.schemas[operation]
	if !ok {
		return nil
	}

	var violations []string
	for _, f := range fields {
		v, present := params[f.Name]
		if !present || v == nil {
			if f.Required {
				violations = append(violations, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}
		if !kindMatches(v, f.Kind) {
			violations = append(violations, fmt.Sprintf("field %q must be of type %s", f.Name, f.Kind))
		}
	}
	return violations
}

func kindMatches(v interface{}, k Kind) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		switch v.(type) {
		case int, int32, int64, float64:
			return true
		default:
			return false
		}
	case KindList:
		_, ok := v.([]interface{})
		return ok
	default:
		return true
	}
}
