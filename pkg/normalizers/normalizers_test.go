package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already clean", input: "Fort Lauderdale", expected: "Fort Lauderdale"},
		{name: "runs collapse", input: "Fort   Lauderdale", expected: "Fort Lauderdale"},
		{name: "tabs and newlines", input: "Fort\t\nLauderdale", expected: "Fort Lauderdale"},
		{name: "surrounding space trimmed", input: "  Fort Lauderdale  ", expected: "Fort Lauderdale"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CollapseWhitespace(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "Gary's Place", expected: "gary s place"},
		{name: "punctuation stripped", input: "Joe's Crab Shack!", expected: "joe s crab shack"},
		{name: "ampersand becomes space", input: "Surf & Turf", expected: "surf turf"},
		{name: "hyphen becomes space", input: "Tex-Mex Grill", expected: "tex mex grill"},
		{name: "digits kept", input: "Cafe 66", expected: "cafe 66"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "street abbreviated", input: "123 Main Street", expected: "123 main st"},
		{name: "boulevard abbreviated", input: "123 Las Olas Boulevard", expected: "123 las olas blvd"},
		{name: "direction abbreviated", input: "500 North Ocean Drive", expected: "500 n ocean dr"},
		{name: "already abbreviated", input: "123 Main St", expected: "123 main st"},
		{name: "whitespace collapsed", input: "123   Main  Street", expected: "123 main st"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}
