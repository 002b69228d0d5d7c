// Package llmjson repairs and validates JSON-shaped text returned by
// language models. Models regularly wrap objects in markdown fences, put
// literal line breaks inside string values, or leave trailing commas; the
// repair steps here are applied cheapest-first and only as far as needed.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidResponse covers both syntax failures and missing required
// fields. Callers treat the two identically, so they share one sentinel.
var ErrInvalidResponse = errors.New("llmjson: invalid structured response")

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// Clean applies the repair ladder to raw model output and returns the best
// candidate JSON text. The last steps are best-effort string surgery and
// are not guaranteed to yield a valid document.
func Clean(s string) string {
	cleaned := stripFence(strings.TrimSpace(s))
	if cleaned == "" {
		return cleaned
	}

	if json.Valid([]byte(cleaned)) {
		return cleaned
	}

	cleaned = escapeNewlinesInStrings(cleaned)
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}

	cleaned = trailingComma.ReplaceAllString(cleaned, "$1")
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}

	return escapeInteriorQuotes(cleaned)
}

// Parse cleans raw model output, decodes the single JSON object it should
// contain, and verifies every required field is present.
func Parse(raw string, required ...string) (map[string]any, error) {
	cleaned := Clean(raw)

	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		snippet := cleaned
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, fmt.Errorf("%w: %v (cleaned: %q)", ErrInvalidResponse, err, snippet)
	}

	for _, field := range required {
		if _, ok := out[field]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrInvalidResponse, field)
		}
	}

	return out, nil
}

// stripFence removes a wrapping markdown code fence, optionally tagged json.
func stripFence(s string) string {
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// escapeNewlinesInStrings rewrites literal line breaks that occur inside
// quoted strings as \n escape sequences. The scan tracks which quote
// character opened the current string and honors backslash escapes, so
// breaks between values are left alone.
func escapeNewlinesInStrings(s string) string {
	var (
		fixed    []string
		current  strings.Builder
		inString bool
		quote    rune
	)

	for _, line := range strings.Split(s, "\n") {
		runes := []rune(line)
		for i, ch := range runes {
			if !inString {
				if ch == '"' || ch == '\'' {
					inString = true
					quote = ch
				}
			} else if ch == quote && (i == 0 || runes[i-1] != '\\') {
				inString = false
			}
			current.WriteRune(ch)
		}

		if inString {
			current.WriteString(`\n`)
		} else {
			fixed = append(fixed, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		fixed = append(fixed, current.String())
	}

	return strings.Join(fixed, "\n")
}

// escapeInteriorQuotes escapes unescaped double quotes that appear in the
// middle of a string value. A closing quote is assumed to be followed by a
// structural character; anything else is treated as part of the value.
func escapeInteriorQuotes(s string) string {
	var (
		out      strings.Builder
		inString bool
	)

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '"' || (i > 0 && runes[i-1] == '\\') {
			out.WriteRune(ch)
			continue
		}

		if !inString {
			inString = true
			out.WriteRune(ch)
			continue
		}

		if closesString(runes, i+1) {
			inString = false
			out.WriteRune(ch)
		} else {
			out.WriteString(`\"`)
		}
	}

	return out.String()
}

// closesString reports whether the first non-space rune at or after pos is
// structural JSON, meaning the quote before it legitimately ended a string.
func closesString(runes []rune, pos int) bool {
	for i := pos; i < len(runes); i++ {
		switch runes[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	return true
}
