package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	report := "redis_version:6.2.14\nconnected_clients:1\nrole:master\n"

	parsed := ParseReport(report)

	require.Len(t, parsed, 3)
	assert.Equal(t, 6.2, parsed["redis_version"])
	assert.Equal(t, 1.0, parsed["connected_clients"])
	assert.Equal(t, "master", parsed["role"])
}

func TestParseReportSectionsAndBlankLines(t *testing.T) {
	report := "# Server\r\nredis_version:7.0.0\r\n\r\n# Clients\r\nconnected_clients:4\r\n"

	parsed := ParseReport(report)

	require.Len(t, parsed, 2)
	assert.Equal(t, 7.0, parsed["redis_version"])
	assert.Equal(t, 4.0, parsed["connected_clients"])
}

func TestParseReportNestedValues(t *testing.T) {
	report := "db0:keys=2,expires=1,avg_ttl=0\nkeyspace_hits:10\n"

	parsed := ParseReport(report)

	nested, ok := parsed["db0"].(map[string]any)
	require.True(t, ok, "db0 should parse into a nested map")
	assert.Equal(t, 2.0, nested["keys"])
	assert.Equal(t, 1.0, nested["expires"])
	assert.Equal(t, 0.0, nested["avg_ttl"])
}

func TestParseReportLastWriteWins(t *testing.T) {
	// Duplicate keys across sections: the later value overwrites the
	// earlier one, matching the INFO format's behavior.
	report := "# A\nuptime:1\n# B\nuptime:2\n"

	parsed := ParseReport(report)

	assert.Equal(t, 2.0, parsed["uptime"])
}

func TestParseReportSkipsMalformedLines(t *testing.T) {
	report := "noseparator\n:novalue\nnokey:\nok:1\n"

	parsed := ParseReport(report)

	require.Len(t, parsed, 1)
	assert.Equal(t, 1.0, parsed["ok"])
}

func TestParseReportDeterministic(t *testing.T) {
	report := "a:1\nb:two\nc:3.5\n"

	first := ParseReport(report)
	second := ParseReport(report)

	assert.Equal(t, first, second)
}

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42.0},
		{"3.14", 3.14},
		{"6.2.14", 6.2},
		{"master", "master"},
		{"1a", "1a"},
		{"", ""},
		{"...", "..."},
		{"16.5M", "16.5M"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceNumeric(tt.in), "input %q", tt.in)
	}
}
