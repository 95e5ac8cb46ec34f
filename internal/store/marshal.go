package store

import (
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// marshalPayload converts a delta payload to canonical JSON TEXT for
// storage. A nil payload (removed deltas) stores as the empty string.
func marshalPayload(payload state.Object) (string, error) {
	if payload == nil {
		return "", nil
	}
	data, err := state.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back to a payload object.
func unmarshalPayload(data string) (state.Object, error) {
	if data == "" {
		return nil, nil
	}
	v, err := state.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	obj, ok := v.(state.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal payload: not an object, got %T", v)
	}
	return obj, nil
}
