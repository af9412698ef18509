package fragment

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrExtractionMiss reports that no qualifying array was found. It is the
// normal outcome for a query with zero results.
var ErrExtractionMiss = errors.New("fragment: no qualifying array found")

// DecodeFault reports an extracted fragment that is not a valid JSON array
// of the expected record shape.
type DecodeFault struct {
	SourceKey string
	Line      int
	Err       error
}

func (f *DecodeFault) Error() string {
	return fmt.Sprintf("decode fragment %s (line %d): %v", f.SourceKey, f.Line, f.Err)
}

func (f *DecodeFault) Unwrap() error { return f.Err }

// Decode unmarshals the fragment body into a slice of T.
// Any JSON error is returned as a *DecodeFault.
func Decode[T any](frag RawFragment) ([]T, error) {
	var out []T
	if err := json.Unmarshal([]byte(frag.Body), &out); err != nil {
		return nil, &DecodeFault{SourceKey: frag.SourceKey, Line: frag.Line, Err: err}
	}
	return out, nil
}

// ExtractAndDecode runs Extract then Decode. It returns ErrExtractionMiss when
// nothing qualifies and a *DecodeFault when the fragment is malformed.
func ExtractAndDecode[T any](text, marker string, required ...string) ([]T, error) {
	frag, ok := Extract(text, marker, required...)
	if !ok {
		return nil, ErrExtractionMiss
	}
	return Decode[T](frag)
}
