package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrUnknownKind is returned when decoding an envelope whose kind tag is not
// one of the known outcome variants.
var ErrUnknownKind = errors.New("unknown outcome kind")

var codecAPI = sonic.Config{
	EscapeHTML:       false,
	CompactMarshaler: true,
	NoNullSliceOrMap: true,
}.Froze()

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeOutcome serializes o into a tagged JSON envelope suitable for a
// shared cache. A nil outcome encodes as NotFound.
func EncodeOutcome(o Outcome) ([]byte, error) {
	if o == nil {
		o = NotFound{}
	}
	env := envelope{Kind: o.Kind()}
	if o.Kind() != KindNotFound {
		data, err := codecAPI.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("encode %s outcome: %w", o.Kind(), err)
		}
		env.Data = data
	}
	return codecAPI.Marshal(env)
}

// DecodeOutcome reverses EncodeOutcome.
func DecodeOutcome(b []byte) (Outcome, error) {
	var env envelope
	if err := codecAPI.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode outcome envelope: %w", err)
	}

	switch env.Kind {
	case KindNotFound:
		return NotFound{}, nil
	case KindGeneric:
		return decodeInto[GenericMatch](env)
	case KindVideo:
		return decodeInto[VideoMatch](env)
	case KindManga:
		return decodeInto[MangaMatch](env)
	case KindBooru:
		return decodeInto[BooruMatch](env)
	case KindAnime:
		return decodeInto[AnimeMatch](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}

func decodeInto[T Outcome](env envelope) (Outcome, error) {
	var v T
	if err := codecAPI.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s outcome: %w", env.Kind, err)
	}
	return v, nil
}
