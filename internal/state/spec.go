package state

import "fmt"

// FieldType is the type of one payload field in a container schema.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldBool   FieldType = "bool"
)

// ValidFieldTypes defines the closed set of allowed field types.
// No float type, matching the payload value model.
var ValidFieldTypes = map[FieldType]bool{
	FieldString: true,
	FieldInt:    true,
	FieldBool:   true,
}

// ContainerSpec is a compiled container schema, produced by
// internal/compiler from a CUE declaration. It drives schema-generic
// containers: payload shape, and which field names the logical entry.
type ContainerSpec struct {
	// Name uniquely identifies the container type (e.g. "wallet").
	Name string `json:"name"`

	// Fields maps payload field names to their types.
	Fields map[string]FieldType `json:"fields"`

	// IdentityField names the payload field whose value is the stable
	// semantic key of an entry. Identities are derived from it, never
	// from runtime object addresses.
	IdentityField string `json:"identity_field"`
}

// Namespace returns the identity-derivation namespace for this container
// type. Pure function of the container name, so every peer derives the
// same namespace without coordination.
func (s *ContainerSpec) Namespace() Identity {
	return DeriveIdentity(Identity{}, "specular/container/"+s.Name)
}

// IdentityOf derives the identity of a payload from its identity field.
func (s *ContainerSpec) IdentityOf(payload Object) (Identity, error) {
	v, ok := payload[s.IdentityField]
	if !ok {
		return Identity{}, fmt.Errorf("container %s: payload missing identity field %q", s.Name, s.IdentityField)
	}
	key, ok := v.(String)
	if !ok {
		return Identity{}, fmt.Errorf("container %s: identity field %q must be a string, got %T", s.Name, s.IdentityField, v)
	}
	return DeriveIdentity(s.Namespace(), string(key)), nil
}

// ValidatePayload checks a payload against the field schema.
// Unknown fields and type mismatches are errors; missing fields are
// allowed for change payloads (partial updates carry only what changed,
// except the identity field which is always required).
func (s *ContainerSpec) ValidatePayload(payload Object) error {
	if _, ok := payload[s.IdentityField]; !ok {
		return fmt.Errorf("container %s: payload missing identity field %q", s.Name, s.IdentityField)
	}
	for name, v := range payload {
		ft, ok := s.Fields[name]
		if !ok {
			return fmt.Errorf("container %s: unknown payload field %q", s.Name, name)
		}
		switch ft {
		case FieldString:
			if _, ok := v.(String); !ok {
				return fmt.Errorf("container %s: field %q must be string, got %T", s.Name, name, v)
			}
		case FieldInt:
			if _, ok := v.(Int); !ok {
				return fmt.Errorf("container %s: field %q must be int, got %T", s.Name, name, v)
			}
		case FieldBool:
			if _, ok := v.(Bool); !ok {
				return fmt.Errorf("container %s: field %q must be bool, got %T", s.Name, name, v)
			}
		}
	}
	return nil
}
