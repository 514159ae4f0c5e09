package scoring

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// parseScore validates the model response as exactly the four-field score
// object. Anything else is a malformed-response failure, handled by the
// caller the same way as a transport error.
func parseScore(content string) (QualityScore, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return QualityScore{}, errors.New("no json object found")
	}
	raw := map[string]any{}
	if err := unmarshalRepaired([]byte(obj), &raw); err != nil {
		return QualityScore{}, err
	}
	allowed := map[string]struct{}{
		"empathy": {}, "compliance": {}, "resolution": {}, "reasoning": {},
	}
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return QualityScore{}, fmt.Errorf("unexpected key %q", key)
		}
	}
	for key := range allowed {
		if _, ok := raw[key]; !ok {
			return QualityScore{}, fmt.Errorf("missing key %q", key)
		}
	}
	var out QualityScore
	if err := unmarshalRepaired([]byte(obj), &out); err != nil {
		return QualityScore{}, err
	}
	for _, v := range []int{out.Empathy, out.Compliance, out.Resolution} {
		if v < 1 || v > 10 {
			return QualityScore{}, fmt.Errorf("score %d out of range 1-10", v)
		}
	}
	if out.Reasoning == "" {
		return QualityScore{}, errors.New("empty reasoning")
	}
	return out, nil
}

// unmarshalRepaired retries a syntax failure after running the payload
// through jsonrepair.
func unmarshalRepaired(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

// extractJSONObject returns the first balanced {...} block in input,
// respecting string literals.
func extractJSONObject(input string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
