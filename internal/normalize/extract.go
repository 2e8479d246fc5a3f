// Package normalize turns raw parsed JSON payloads into flat, uniform
// benchmark records.
package normalize

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/model"
)

// ErrParse marks input bytes that are not valid JSON.
var ErrParse = eris.New("normalize: parse failure")

// EnvelopeKeys are the wrapper keys checked, in order, for a record array.
var EnvelopeKeys = []string{"results", "data", "records", "items", "files"}

// Decode parses one JSON document. Numbers are kept as json.Number so
// integers and floats stay distinguishable.
func Decode(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, eris.Wrapf(ErrParse, "decode: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, eris.Wrap(ErrParse, "decode: trailing data after document")
	}
	return root, nil
}

// ExtractRecords returns the records carried by raw:
//   - an array yields its object elements;
//   - an object with an array under one of EnvelopeKeys yields that
//     array's object elements;
//   - any other object is a single record;
//   - anything else yields nothing.
func ExtractRecords(raw any) []model.Record {
	switch v := raw.(type) {
	case []any:
		return objectElements(v)
	case map[string]any:
		for _, key := range EnvelopeKeys {
			if arr, ok := v[key].([]any); ok {
				return objectElements(arr)
			}
		}
		return []model.Record{model.Record(v)}
	case model.Record:
		return ExtractRecords(map[string]any(v))
	default:
		return nil
	}
}

func objectElements(arr []any) []model.Record {
	out := make([]model.Record, 0, len(arr))
	for _, el := range arr {
		switch m := el.(type) {
		case map[string]any:
			out = append(out, model.Record(m))
		case model.Record:
			out = append(out, m)
		}
	}
	return out
}
