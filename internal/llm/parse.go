package llm

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrUnparseable marks a model answer with no decodable JSON object.
var ErrUnparseable = errors.New("unparseable model response")

// DefaultConfidence is assumed when a parsed answer carries no confidence.
const DefaultConfidence = 0.5

// ParseResponse coerces raw model text into a JSON object.
//
// It strips markdown code fences and decodes; failing that it decodes the
// first balanced {...} span; failing that it returns
// {"error": "unparseable", "raw": raw} with confidence 0 and ErrUnparseable.
func ParseResponse(raw string) (map[string]any, float64, error) {
	text := stripFences(raw)
	if data, ok := decodeObject(text); ok {
		return data, confidenceOf(data), nil
	}
	if span, ok := firstObjectSpan(text); ok {
		if data, ok := decodeObject(span); ok {
			return data, confidenceOf(data), nil
		}
	}
	return map[string]any{"error": "unparseable", "raw": raw}, 0, ErrUnparseable
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop the info string (json, JSON, ...) up to the first newline.
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		if info := strings.TrimSpace(text[:nl]); !strings.ContainsAny(info, "{[") {
			text = text[nl+1:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func decodeObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// firstObjectSpan finds the first balanced brace span, ignoring braces inside
// JSON strings.
func firstObjectSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
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
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func confidenceOf(data map[string]any) float64 {
	raw, ok := data["confidence"]
	if !ok {
		return DefaultConfidence
	}
	var c float64
	switch v := raw.(type) {
	case float64:
		c = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "%")), 64)
		if err != nil {
			return DefaultConfidence
		}
		if strings.HasSuffix(strings.TrimSpace(v), "%") {
			parsed /= 100
		}
		c = parsed
	default:
		return DefaultConfidence
	}
	if c > 1 && c <= 100 {
		c /= 100
	}
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
