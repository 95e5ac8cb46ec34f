// Package compiler turns CUE container declarations into compiled
// ContainerSpec values.
//
// A declaration names the container, its payload fields with their
// types, and which field carries the entry's semantic identity:
//
//	container: wallet: {
//		identity: "owner"
//		fields: {
//			owner:   string
//			coins:   int
//			premium: bool
//		}
//	}
//
// Field types are CUE types, restricted to the engine's value model:
// string, int, bool. Floats are rejected at compile time.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/specular/internal/state"
)

// CompileContainer parses a CUE value into a ContainerSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the container struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`container: wallet: { ... }`)
//	spec, err := CompileContainer(v.LookupPath(cue.ParsePath("container.wallet")))
func CompileContainer(v cue.Value) (*state.ContainerSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &state.ContainerSpec{
		Fields: make(map[string]state.FieldType),
	}

	// Container name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	identityVal := v.LookupPath(cue.ParsePath("identity"))
	if !identityVal.Exists() {
		return nil, &CompileError{
			Field:   "identity",
			Message: "identity is required",
			Pos:     v.Pos(),
		}
	}
	identity, err := identityVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.IdentityField = identity

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		ft, err := extractFieldType(iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Fields[name] = ft
	}

	if err := Validate(spec); err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileContainers parses every declaration under the top-level
// "container" struct, in declaration order.
func CompileContainers(v cue.Value) ([]*state.ContainerSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("container"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "container",
			Message: "no container declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*state.ContainerSpec
	for iter.Next() {
		spec, err := CompileContainer(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "container",
			Message: "at least one container is required",
			Pos:     root.Pos(),
		}
	}

	return specs, nil
}

// extractFieldType converts a CUE type to a schema field type.
// Floats are forbidden; the value model has no float type.
func extractFieldType(v cue.Value) (state.FieldType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return state.FieldString, nil
	case cue.IntKind:
		return state.FieldInt, nil
	case cue.BoolKind:
		return state.FieldBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
