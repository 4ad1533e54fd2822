package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse indicates the model reply contained no parseable
	// JSON object.
	ErrMalformedResponse = errors.New("judge: no JSON object in model response")

	// ErrInvalidSchema indicates the model reply parsed as JSON but is
	// missing required verdict fields.
	ErrInvalidSchema = errors.New("judge: model response missing required fields")
)

// extractVerdict pulls a [Verdict] out of a raw model reply.
//
// Models frequently wrap the JSON object in prose or markdown fences, so the
// candidate region is everything from the first '{' to the last '}'
// inclusive. The object must carry is_correct, new_items and response_text;
// error_description is optional.
func extractVerdict(raw string) (*Verdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrMalformedResponse
	}
	candidate := raw[start : end+1]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, key := range []string{"is_correct", "new_items", "response_text"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, key)
		}
	}

	var v Verdict
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if v.ResponseText == "" {
		return nil, fmt.Errorf("%w: empty response_text", ErrInvalidSchema)
	}
	return &v, nil
}
