package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeBlock removes a surrounding ```json fence.
func StripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// FirstJSONObject returns the first balanced {...} value in s, or "".
func FirstJSONObject(s string) string {
	return firstBalanced(s, '{', '}')
}

// FirstJSONArray returns the first balanced [...] value in s, or "".
func FirstJSONArray(s string) string {
	return firstBalanced(s, '[', ']')
}

func firstBalanced(s string, opener, closer byte) string {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// DecodeObject decodes the first JSON object found in a provider answer,
// tolerating code fences and surrounding prose.
func DecodeObject(raw string, v any) error {
	obj := FirstJSONObject(StripCodeBlock(raw))
	if obj == "" {
		return fmt.Errorf("%w: no object in %q", ErrMalformedJSON, truncate(raw, 120))
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
