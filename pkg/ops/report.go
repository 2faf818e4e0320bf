package ops

import (
	"strconv"
	"strings"
)

// ParseReport converts the store's line-oriented diagnostic text (INFO) into
// a nested key-to-value mapping with numeric coercion. Section headers
// (lines starting with '#') and blank lines are skipped. Values containing
// '=' are treated as comma-separated k=v records and parsed into a nested
// map.
//
// Keys are not namespaced by section: when two sections emit the same key
// the later one overwrites the earlier. This last-write-wins behavior is a
// quirk of the INFO format that downstream consumers rely on, so it is
// preserved rather than fixed.
func ParseReport(report string) map[string]any {
	result := make(map[string]any)

	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}

		if strings.Contains(value, "=") {
			nested := make(map[string]any)
			for _, pair := range strings.Split(value, ",") {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					continue
				}
				nested[k] = coerceNumeric(v)
			}
			result[key] = nested
			continue
		}

		result[key] = coerceNumeric(value)
	}

	return result
}

// coerceNumeric parses values composed solely of digits and dots as
// floating-point numbers; everything else stays a string. A token with more
// than one dot keeps only the leading number ("6.2.14" reads as 6.2), which
// matches how version fields have historically been reported.
func coerceNumeric(value string) any {
	hasDigit := false
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.':
		default:
			return value
		}
	}
	if !hasDigit {
		return value
	}

	numeric := value
	if first := strings.IndexByte(value, '.'); first != -1 {
		if second := strings.IndexByte(value[first+1:], '.'); second != -1 {
			numeric = value[:first+1+second]
		}
	}

	f, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return value
	}
	return f
}
