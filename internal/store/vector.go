package store

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeVector renders an embedding in pgvector's textual input format,
// a bracketed comma-separated float list with no spaces.
func EncodeVector(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeVector parses pgvector's textual output format.
func DecodeVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("store: malformed vector literal %q", truncate(s, 32))
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return []float32{}, nil
	}

	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("store: vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// ZeroVector returns an all-zero embedding of the given dimensionality.
// Stored for blocked articles so the row remains searchable but inert:
// cosine distance against a zero vector never crosses any threshold.
func ZeroVector(dimensions int) []float32 {
	return make([]float32, dimensions)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
