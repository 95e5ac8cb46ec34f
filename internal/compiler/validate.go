package compiler

import (
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// Validate checks a compiled spec for internal consistency:
//   - the container has a name
//   - at least one field is declared
//   - every field type is in the closed type set
//   - the identity field is declared and is a string
func Validate(spec *state.ContainerSpec) error {
	if spec.Name == "" {
		return &CompileError{Field: "container", Message: "container name is required"}
	}
	if len(spec.Fields) == 0 {
		return &CompileError{
			Field:   spec.Name + ".fields",
			Message: "at least one field is required",
		}
	}
	for name, ft := range spec.Fields {
		if !state.ValidFieldTypes[ft] {
			return &CompileError{
				Field:   fmt.Sprintf("%s.fields.%s", spec.Name, name),
				Message: fmt.Sprintf("invalid field type %q", ft),
			}
		}
	}
	ft, ok := spec.Fields[spec.IdentityField]
	if !ok {
		return &CompileError{
			Field:   spec.Name + ".identity",
			Message: fmt.Sprintf("identity field %q is not declared in fields", spec.IdentityField),
		}
	}
	if ft != state.FieldString {
		return &CompileError{
			Field:   spec.Name + ".identity",
			Message: fmt.Sprintf("identity field %q must be a string, is %s", spec.IdentityField, ft),
		}
	}
	return nil
}
