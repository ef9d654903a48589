package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("ai: response contains no JSON")

// extractJSON returns the JSON document in a model reply, tolerating markdown
// fences and prose around it.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", errNoJSON
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", errNoJSON
	}
	return candidate, nil
}

// decodeReply extracts and unmarshals the JSON document in a model reply.
func decodeReply(text string, dst any) error {
	doc, err := extractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(doc), dst)
}

// productKeys pulls the matched keys out of a search reply. Accepted shapes,
// in order: {"product_keys":[]}, {"products":[]}, {"matches":[]},
// {"results":[]}, a bare array, then the first array-valued property.
func productKeys(text string) ([]string, error) {
	doc, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case []any:
		return stringsOf(v), nil
	case map[string]any:
		for _, name := range []string{"product_keys", "products", "matches", "results"} {
			if arr, ok := v[name].([]any); ok {
				return stringsOf(arr), nil
			}
		}
		// map order is random; decode again to honour document order
		return firstArrayProperty(doc)
	}
	return nil, nil
}

func firstArrayProperty(doc string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		var arr []any
		if json.Unmarshal(value, &arr) == nil {
			return stringsOf(arr), nil
		}
	}
	return nil, nil
}

func stringsOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
