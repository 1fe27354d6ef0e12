package chat

import (
	"sort"
)

// fallbackResponse is used when no recognizable text field is found.
const fallbackResponse = "Sorry, I could not process your request."

// maxExtractDepth bounds the recursive descent so an adversarial deeply
// nested payload cannot blow the stack.
const maxExtractDepth = 32

// ExtractResponseText pulls a human-readable answer out of an arbitrary
// decoded JSON body. It searches depth-first for the first string field named
// "output" (object keys visited in sorted order, so the result is
// deterministic), then falls back to the top-level "message", "response" and
// "text" fields in that order.
func ExtractResponseText(body any) string {
	if out, ok := findOutput(body, 0); ok {
		return out
	}

	if obj, ok := body.(map[string]any); ok {
		for _, key := range []string{"message", "response", "text"} {
			if v, ok := obj[key].(string); ok {
				return v
			}
		}
	}

	return fallbackResponse
}

func findOutput(node any, depth int) (string, bool) {
	if depth >= maxExtractDepth {
		return "", false
	}

	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			child := v[k]
			if s, ok := child.(string); ok {
				if k == "output" {
					return s, true
				}
				continue
			}
			if s, ok := findOutput(child, depth+1); ok {
				return s, true
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := findOutput(item, depth+1); ok {
				return s, true
			}
		}
	}

	return "", false
}
