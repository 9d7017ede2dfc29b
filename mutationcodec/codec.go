// Package mutationcodec is the serializer collaborator spec.md §6 leaves
// opaque: it round-trips a mutation.Mutation to and from bytes, the way
// the teacher's storage.go marshals a Doc to protobuf bytes — except here
// the wire format is a small JSON envelope (goccy/go-json, matching the
// teacher's JSON library choice) run through the same size-tiered
// adaptive compression the teacher's compression.go applies to document
// bodies.
//
// The variant, key and precondition round-trip exactly. Field values go
// through JSON, so a number decodes as float64 whatever Go numeric type
// it had when encoded (an int 31 comes back as float64(31)).
package mutationcodec

import (
	"fmt"

	json "github.com/goccy/go-json"

	"docoverlay/document"
	"docoverlay/mutation"
)

// envelope is the tagged wire shape every mutation variant serializes to
// before compression.
type envelope struct {
	Type         string             `json:"type"`
	Key          string             `json:"key"`
	Fields       map[string]any     `json:"fields,omitempty"`
	Values       map[string]any     `json:"values,omitempty"`
	Mask         []string           `json:"mask,omitempty"`
	Precondition mutation.Precondition `json:"precondition,omitempty"`
}

const (
	typeSet    = "set"
	typeDelete = "delete"
	typePatch  = "patch"
	typeVerify = "verify"
)

// Encode serializes m to compressed bytes.
func Encode(m mutation.Mutation) ([]byte, error) {
	env, err := toEnvelope(m)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("mutationcodec: marshal: %w", err)
	}
	return compress(raw), nil
}

// Decode deserializes mutation bytes produced by Encode.
func Decode(data []byte) (mutation.Mutation, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("mutationcodec: decompress: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("mutationcodec: unmarshal: %w", err)
	}
	return fromEnvelope(env)
}

func toEnvelope(m mutation.Mutation) (envelope, error) {
	key := m.Key().String()
	switch v := m.(type) {
	case *mutation.SetMutation:
		return envelope{Type: typeSet, Key: key, Fields: v.Fields}, nil
	case *mutation.DeleteMutation:
		return envelope{Type: typeDelete, Key: key}, nil
	case *mutation.PatchMutation:
		return envelope{
			Type:         typePatch,
			Key:          key,
			Values:       v.Values,
			Mask:         v.Mask.Fields(),
			Precondition: v.Precondition,
		}, nil
	case *mutation.VerifyMutation:
		return envelope{Type: typeVerify, Key: key}, nil
	default:
		return envelope{}, fmt.Errorf("mutationcodec: unknown mutation type %T", m)
	}
}

func fromEnvelope(env envelope) (mutation.Mutation, error) {
	key := document.KeyFromString(env.Key)
	switch env.Type {
	case typeSet:
		return mutation.NewSet(key, env.Fields), nil
	case typeDelete:
		return mutation.NewDelete(key), nil
	case typePatch:
		return mutation.NewPatch(key, env.Values, env.Precondition), nil
	case typeVerify:
		return mutation.NewVerify(key), nil
	default:
		return nil, fmt.Errorf("mutationcodec: unknown wire type %q", env.Type)
	}
}
